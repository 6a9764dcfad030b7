package critique

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rageval/pkg/core"
	"rageval/pkg/qa"
)

// loop states: Draft -> Critiqued -> (Improving -> Draft) | Terminal.
type state int

const (
	stateDraft state = iota
	stateCritiqued
	stateImproving
	stateTerminal
)

const criticSystemPrompt = "You are a rigorous reviewer of retrieval-augmented answers. Judge only against the provided evidence. Output strict JSON and nothing else."

const criticTemplate = `Evaluate the answer below strictly against the retrieved evidence.

Question:
{{question}}

Answer:
{{answer}}

Evidence:
{{evidence}}

Return STRICT JSON with exactly these keys:
- "scores": object with numeric values from 0 to 10 for "correctness", "completeness", "clarity", "hallucination_risk", "prompt_quality"
- "critique_markdown": markdown critique of the answer (string)
- "improved_prompt": a rewritten prompt that would produce a better answer (string)
- "issue_tags": short tags naming the problems found (array of strings)

Output ONLY valid JSON.`

// Controller runs the critique loop: an answer model drafts, a critic model
// judges, and when self-correction is enabled the improved prompt drives one
// corrected redraft.
type Controller struct {
	AnswerModel core.Model
	CriticModel core.Model
	Options     core.GenerateOptions
}

// Run executes the loop for question over the given evidence and returns the
// completed session. Provider failures abort the run; malformed critic
// replies do not, the round is just recorded with null scores.
func (c *Controller) Run(ctx context.Context, question string, chunks []core.ScoredChunk, selfCorrect bool) (*Session, error) {
	if c.AnswerModel == nil || c.CriticModel == nil {
		return nil, fmt.Errorf("critique: answer and critic models are required")
	}
	if strings.TrimSpace(question) == "" {
		return nil, core.NewInputError("question cannot be empty")
	}

	maxRounds := 1
	if selfCorrect {
		maxRounds = 2
	}

	session := &Session{
		ID:          uuid.NewString(),
		Question:    question,
		Sources:     chunks,
		SelfCorrect: selfCorrect,
		MaxRounds:   maxRounds,
		CreatedAt:   time.Now().UTC(),
	}

	contextBlocks := qa.ContextBlocks(chunks)
	prompt := qa.BuildPrompt(question, contextBlocks)

	current := stateDraft
	for current != stateTerminal {
		switch current {
		case stateDraft:
			resp, err := c.AnswerModel.Generate(ctx, prompt, c.Options)
			if err != nil {
				return nil, core.NewProviderError(c.AnswerModel.Name(), err)
			}
			session.Rounds = append(session.Rounds, Round{
				Number:   len(session.Rounds) + 1,
				Question: question,
				Answer:   resp.Content,
				Context:  contextBlocks,
			})
			current = stateCritiqued

		case stateCritiqued:
			round := &session.Rounds[len(session.Rounds)-1]
			reply, err := c.critiqueRound(ctx, question, round.Answer, contextBlocks)
			if err != nil {
				return nil, err
			}
			round.Scores = reply.Scores
			round.Critique = reply.Critique
			round.ImprovedPrompt = reply.ImprovedPrompt
			round.IssueTags = reply.IssueTags

			if session.SelfCorrect && len(session.Rounds) < session.MaxRounds {
				current = stateImproving
			} else {
				current = stateTerminal
			}

		case stateImproving:
			last := session.Rounds[len(session.Rounds)-1]
			prompt = improvedDraftPrompt(question, last, contextBlocks)
			current = stateDraft
		}
	}

	return session, nil
}

func (c *Controller) critiqueRound(ctx context.Context, question, answer string, contextBlocks []string) (criticReply, error) {
	prompt := strings.NewReplacer(
		"{{question}}", question,
		"{{answer}}", answer,
		"{{evidence}}", strings.Join(contextBlocks, "\n\n---\n\n"),
	).Replace(criticTemplate)

	opts := c.Options
	opts.SystemPrompt = criticSystemPrompt
	opts.Temperature = 0
	opts.Deterministic = true

	resp, err := c.CriticModel.Generate(ctx, prompt, opts)
	if err != nil {
		return criticReply{}, core.NewProviderError(c.CriticModel.Name(), err)
	}
	return parseCriticReply(resp.Content), nil
}

// improvedDraftPrompt builds the round-2 prompt. The critic's improved
// prompt takes precedence; without one, the critique itself steers the
// redraft.
func improvedDraftPrompt(question string, last Round, contextBlocks []string) string {
	if last.ImprovedPrompt != "" {
		return fmt.Sprintf("%s\n\nContext:\n%s\n\nQuestion: %s\n",
			last.ImprovedPrompt, strings.Join(contextBlocks, "\n\n---\n\n"), question)
	}
	base := qa.BuildPrompt(question, contextBlocks)
	if last.Critique == "" {
		return base
	}
	return fmt.Sprintf("%s\nA previous attempt received this critique:\n%s\n\nAddress every issue in a corrected answer.\n", base, last.Critique)
}

// Package critique drives the bounded draft/critique/improve loop over a
// retrieval-augmented answer.
package critique

import (
	"time"

	"rageval/pkg/core"
)

// Scores are the critic's numeric judgments on a 0-10 scale. Fields are
// pointers so a partially parsed critic reply records null rather than a
// fabricated zero.
type Scores struct {
	Correctness       *float64 `json:"correctness"`
	Completeness      *float64 `json:"completeness"`
	Clarity           *float64 `json:"clarity"`
	HallucinationRisk *float64 `json:"hallucination_risk"`
	PromptQuality     *float64 `json:"prompt_quality"`
}

// Round is one draft/critique cycle. Round 1 holds the initial answer;
// later rounds are corrections.
type Round struct {
	Number         int      `json:"round_number"`
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	Context        []string `json:"context"`
	Scores         Scores   `json:"scores"`
	Critique       string   `json:"critique_markdown"`
	ImprovedPrompt string   `json:"improved_prompt"`
	IssueTags      []string `json:"issue_tags"`
}

// Session owns the ordered round history of one critique run.
type Session struct {
	ID          string             `json:"id"`
	Question    string             `json:"question"`
	Rounds      []Round            `json:"rounds"`
	Sources     []core.ScoredChunk `json:"sources"`
	SelfCorrect bool               `json:"self_correct"`
	MaxRounds   int                `json:"max_rounds"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Answer returns the final answer, i.e. the last round's draft.
func (s *Session) Answer() string {
	if len(s.Rounds) == 0 {
		return ""
	}
	return s.Rounds[len(s.Rounds)-1].Answer
}

// DeltaCorrectness is the correctness improvement between the first and last
// rounds, nil when either round lacks a parsed score.
func (s *Session) DeltaCorrectness() *float64 {
	if len(s.Rounds) < 2 {
		return nil
	}
	first := s.Rounds[0].Scores.Correctness
	last := s.Rounds[len(s.Rounds)-1].Scores.Correctness
	if first == nil || last == nil {
		return nil
	}
	delta := *last - *first
	return &delta
}

// Package qa builds retrieval-augmented prompts and generates answers
// over a set of retrieved chunks.
package qa

import (
	"context"
	"fmt"
	"strings"

	"rageval/pkg/core"
)

const answerTemplate = `You are a helpful assistant that answers questions based on the provided context.

Context:
%s

Question: %s

- First, try to infer the best answer you can from the context, even if it is not stated in a single sentence.
- If you truly cannot infer an answer at all, then say you don't know.
- Be clear and concise.
`

// BuildPrompt assembles the grounded answer prompt from context blocks.
func BuildPrompt(question string, contextBlocks []string) string {
	return fmt.Sprintf(answerTemplate, strings.Join(contextBlocks, "\n\n---\n\n"), question)
}

// ContextBlocks renders chunks as source-attributed context lines.
func ContextBlocks(chunks []core.ScoredChunk) []string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = fmt.Sprintf("[Source: %s] %s", c.Chunk.DocName, c.Chunk.Text)
	}
	return blocks
}

// Answerer generates grounded answers with a single model.
type Answerer struct {
	Model   core.Model
	Options core.GenerateOptions
}

// Answer generates an answer to question using chunks as evidence.
func (a Answerer) Answer(ctx context.Context, question string, chunks []core.ScoredChunk) (core.Response, error) {
	if a.Model == nil {
		return core.Response{}, fmt.Errorf("qa: model is required")
	}
	if strings.TrimSpace(question) == "" {
		return core.Response{}, core.NewInputError("question cannot be empty")
	}
	prompt := BuildPrompt(question, ContextBlocks(chunks))
	resp, err := a.Model.Generate(ctx, prompt, a.Options)
	if err != nil {
		return core.Response{}, core.NewProviderError(a.Model.Name(), err)
	}
	return resp, nil
}

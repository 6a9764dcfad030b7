package qa

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"rageval/pkg/core"
	"rageval/pkg/model"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("What ended the war?", []string{"block one", "block two"})
	require.Contains(t, prompt, "What ended the war?")
	require.Contains(t, prompt, "block one\n\n---\n\nblock two")
	require.Contains(t, prompt, "say you don't know")
}

func TestContextBlocks(t *testing.T) {
	blocks := ContextBlocks([]core.ScoredChunk{
		{Chunk: core.ChunkRecord{DocName: "a.txt", Text: "alpha"}},
		{Chunk: core.ChunkRecord{DocName: "b.txt", Text: "beta"}},
	})
	require.Equal(t, []string{"[Source: a.txt] alpha", "[Source: b.txt] beta"}, blocks)
}

func TestAnswer(t *testing.T) {
	m := &model.MockModel{ResponseText: "grounded answer"}
	answerer := Answerer{Model: m}

	resp, err := answerer.Answer(context.Background(), "question?", []core.ScoredChunk{
		{Chunk: core.ChunkRecord{DocName: "a.txt", Text: "evidence"}},
	})
	require.NoError(t, err)
	require.Equal(t, "grounded answer", resp.Content)

	calls := m.Calls()
	require.Len(t, calls, 1)
	require.Contains(t, calls[0], "[Source: a.txt] evidence")
	require.Contains(t, calls[0], "question?")
}

func TestAnswerValidation(t *testing.T) {
	answerer := Answerer{Model: &model.MockModel{}}
	_, err := answerer.Answer(context.Background(), "  ", nil)
	require.True(t, core.IsInputError(err))

	_, err = Answerer{}.Answer(context.Background(), "q", nil)
	require.Error(t, err)
}

func TestAnswerWrapsProviderError(t *testing.T) {
	answerer := Answerer{Model: &model.MockModel{NameValue: "flaky", Err: errors.New("timeout")}}
	_, err := answerer.Answer(context.Background(), "q", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "flaky")
	require.Contains(t, err.Error(), "timeout")
}

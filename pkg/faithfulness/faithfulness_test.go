package faithfulness

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"rageval/pkg/core"
	"rageval/pkg/embed"
)

func chunkSet(texts ...string) []core.ScoredChunk {
	chunks := make([]core.ScoredChunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.ScoredChunk{
			Chunk: core.ChunkRecord{DocName: "doc.txt", Text: text},
			Rank:  i + 1,
		}
	}
	return chunks
}

func TestScoreSupportedAndUnsupported(t *testing.T) {
	scorer := NewScorer(nil)
	answer := "Paris is the capital of France. It has a population of over 2 million."
	chunks := chunkSet("Paris is the capital and largest city of France.")

	report := scorer.Score(context.Background(), answer, chunks, "What is the capital of France?")

	require.Equal(t, 2, report.TotalSentences)
	require.Equal(t, 1, report.SupportedSentences)
	require.Equal(t, 0.5, report.EvidenceCoverage)
	require.Equal(t, 50.0, report.CitationCoverage)

	require.True(t, report.SentenceSupport[0].Supported)
	require.NotEmpty(t, report.SentenceSupport[0].SupportingChunks)
	require.False(t, report.SentenceSupport[1].Supported)
	require.Empty(t, report.SentenceSupport[1].SupportingChunks)
}

func TestScoreRiskIsExactComplement(t *testing.T) {
	scorer := NewScorer(nil)
	answers := []string{
		"Paris is the capital of France. It has a population of over 2 million.",
		"Completely unrelated statement about quantum physics.",
		"Paris is the capital and largest city of France.",
	}
	chunks := chunkSet("Paris is the capital and largest city of France.")

	for _, answer := range answers {
		report := scorer.Score(context.Background(), answer, chunks, "")
		require.Equal(t, 1-report.EvidenceCoverage, report.HallucinationRisk)
	}
}

func TestScoreSemanticSupport(t *testing.T) {
	// No lexical overlap at all, but the mock embedder pins both texts to
	// the same vector so the semantic signal carries the sentence.
	sentence := "Alpha beta gamma."
	chunkText := "Delta epsilon zeta."
	scorer := NewScorer(embed.MockEmbedder{Fixed: map[string][]float64{
		sentence:  {1, 0},
		chunkText: {1, 0},
	}})

	report := scorer.Score(context.Background(), sentence, chunkSet(chunkText), "")

	require.Equal(t, 1, report.SupportedSentences)
	require.Equal(t, 1.0, report.SentenceSupport[0].ConfidenceSemantic)
	require.Equal(t, 0.0, report.SentenceSupport[0].ConfidenceLexical)
}

func TestScoreEmbedderFailureDegradesToLexical(t *testing.T) {
	scorer := NewScorer(embed.MockEmbedder{Err: errors.New("embedding offline")})
	answer := "Paris is the capital of France."
	chunks := chunkSet("Paris is the capital and largest city of France.")

	report := scorer.Score(context.Background(), answer, chunks, "")

	require.Equal(t, 1, report.SupportedSentences)
	require.Equal(t, 0.0, report.SentenceSupport[0].ConfidenceSemantic)
	require.Greater(t, report.SentenceSupport[0].ConfidenceLexical, 0.0)
}

func TestScoreExtractsQuotes(t *testing.T) {
	scorer := NewScorer(nil)
	answer := "The quick brown fox jumps over the lazy dog."
	chunks := chunkSet("Witnesses said the quick brown fox jumps over fences daily.")

	report := scorer.Score(context.Background(), answer, chunks, "")

	require.NotEmpty(t, report.SentenceSupport[0].Quotes)
	require.LessOrEqual(t, len(report.SentenceSupport[0].Quotes), maxQuotesPerSent)
	require.NotEmpty(t, report.ExtractedQuotes)
	require.LessOrEqual(t, len(report.ExtractedQuotes), maxQuotesPerReport)
}

func TestScoreThresholdsAreConfigurable(t *testing.T) {
	scorer := &Scorer{LexicalThreshold: 1.0, SemanticThreshold: 1.0}
	answer := "Paris is the capital of France."
	chunks := chunkSet("Paris is the capital and largest city of France. Nothing else here.")

	report := scorer.Score(context.Background(), answer, chunks, "")
	require.Equal(t, 0, report.SupportedSentences)
	require.Equal(t, 1.0, report.HallucinationRisk)
}

func TestScoreEmptyAnswer(t *testing.T) {
	report := NewScorer(nil).Score(context.Background(), "", chunkSet("some chunk text"), "")
	require.Equal(t, 0, report.TotalSentences)
	require.Equal(t, 0.0, report.EvidenceCoverage)
	require.Equal(t, 1.0, report.HallucinationRisk)
}

func TestSplitSentences(t *testing.T) {
	sentences := SplitSentences("First sentence. Second sentence! Third one?")
	require.Equal(t, []string{"First sentence.", "Second sentence!", "Third one?"}, sentences)
}

func TestSplitSentencesKeepsListMarkers(t *testing.T) {
	// Punctuation after a digit never breaks a sentence.
	sentences := SplitSentences("Step 1. mix the batter and Step 2. bake it")
	require.Len(t, sentences, 1)
}

func TestSplitSentencesFiltersFragments(t *testing.T) {
	sentences := SplitSentences("Ok. a. Next sentence here.")
	require.Equal(t, []string{"Ok.", "Next sentence here."}, sentences)
}

func TestSplitSentencesCleansMarkup(t *testing.T) {
	sentences := SplitSentences("**Bold** claim here. <b>Markup</b> gets stripped.")
	require.Equal(t, []string{"Bold claim here.", "Markup gets stripped."}, sentences)
}

func TestCleanText(t *testing.T) {
	got := CleanText("## Header\n| a | b |\n|---|---|\ntext  with   spaces")
	require.NotContains(t, got, "#")
	require.NotContains(t, got, "|--")
	require.NotContains(t, got, "  ")
}

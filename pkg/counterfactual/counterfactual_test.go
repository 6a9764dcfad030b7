package counterfactual

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"rageval/pkg/core"
	"rageval/pkg/embed"
	"rageval/pkg/model"
)

func rankedChunks(texts ...string) []core.ScoredChunk {
	chunks := make([]core.ScoredChunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.ScoredChunk{
			Chunk: core.ChunkRecord{DocName: "doc.txt", Text: text},
			Rank:  i + 1,
		}
	}
	return chunks
}

func texts(chunks []core.ScoredChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Chunk.Text
	}
	return out
}

func TestPerturbRemoveTop(t *testing.T) {
	chunks := rankedChunks("one", "two", "three", "four", "five")

	perturbed, err := Perturb(chunks, RemoveTop, "", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"two", "three", "four", "five"}, texts(perturbed))
	require.Equal(t, 1, perturbed[0].Rank)

	// A single chunk leaves nothing behind.
	empty, err := Perturb(rankedChunks("only"), RemoveTop, "", nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestPerturbRemoveTop3(t *testing.T) {
	perturbed, err := Perturb(rankedChunks("a", "b", "c", "d", "e"), RemoveTop3, "", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"d", "e"}, texts(perturbed))

	empty, err := Perturb(rankedChunks("a", "b", "c"), RemoveTop3, "", nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestPerturbReverseTwiceIsIdentity(t *testing.T) {
	chunks := rankedChunks("a", "b", "c")
	once, err := Perturb(chunks, ReverseOrder, "", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b", "a"}, texts(once))

	twice, err := Perturb(once, ReverseOrder, "", nil)
	require.NoError(t, err)
	require.Equal(t, texts(chunks), texts(twice))
}

func TestPerturbRandomKeepsMembership(t *testing.T) {
	chunks := rankedChunks("a", "b", "c", "d")
	perturbed, err := Perturb(chunks, Random, "", rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.Len(t, perturbed, len(chunks))
	require.ElementsMatch(t, texts(chunks), texts(perturbed))
	for i, c := range perturbed {
		require.Equal(t, i+1, c.Rank)
	}
}

func TestPerturbLexicalOnlyReranks(t *testing.T) {
	chunks := rankedChunks(
		"completely unrelated content",
		"the treaty of westphalia ended the war",
	)

	perturbed, err := Perturb(chunks, LexicalOnly, "what did the treaty of westphalia end", nil)
	require.NoError(t, err)
	require.Equal(t, "the treaty of westphalia ended the war", perturbed[0].Chunk.Text)
	require.Greater(t, perturbed[0].PrimaryScore, perturbed[1].PrimaryScore)
}

func TestPerturbDoesNotMutateInput(t *testing.T) {
	chunks := rankedChunks("a", "b", "c")
	_, err := Perturb(chunks, ReverseOrder, "", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, texts(chunks))
}

func TestPerturbUnknownStrategy(t *testing.T) {
	_, err := Perturb(rankedChunks("a"), "shuffle_hard", "", nil)
	require.True(t, core.IsInputError(err))

	_, err = ParseStrategy("shuffle_hard")
	require.Error(t, err)
}

func TestChunkOverlap(t *testing.T) {
	original := rankedChunks("a", "b", "c", "d", "e")
	perturbed := rankedChunks("b", "c", "d", "e")
	require.InDelta(t, 0.8, chunkOverlap(original, perturbed), 1e-9)
	require.InDelta(t, 0.0, chunkOverlap(original, nil), 1e-9)
	require.InDelta(t, 1.0, chunkOverlap(original, original), 1e-9)
}

func TestLCSFScore(t *testing.T) {
	require.InDelta(t, 1.0, lcsFScore("same answer text", "same answer text"), 1e-9)
	require.Equal(t, 0.0, lcsFScore("alpha beta", "gamma delta"))
	require.Equal(t, 0.0, lcsFScore("", "anything"))

	// "a b" vs "a c b": lcs 2, precision 2/3, recall 1.
	require.InDelta(t, 0.8, lcsFScore("a b", "a c b"), 1e-9)
}

func TestRunDependenceWhenEvidenceRemoved(t *testing.T) {
	// Both generations return the same text, so answer similarity is high
	// even though the chunk sets differ completely.
	analyzer := &Analyzer{
		Model: &model.MockModel{ResponseText: "The answer stays the same."},
	}
	chunks := rankedChunks("only chunk")

	result, err := analyzer.Run(context.Background(), "question?", chunks, RemoveTop, "")
	require.NoError(t, err)

	require.Equal(t, RemoveTop, result.Strategy)
	require.Equal(t, 1, result.OriginalChunkCount)
	require.Equal(t, 0, result.CounterfactualChunkCount)
	require.Equal(t, noChunksAnswer, result.CounterfactualAnswer)
	require.Equal(t, 0.0, result.ChunkOverlap)

	// Overlap below 0.5 attributes dependence to 1 - similarity.
	require.Equal(t, round3(1-result.AnswerSimilarity), result.RetrievalDependence)
}

func TestRunDependenceWhenEvidencePreserved(t *testing.T) {
	analyzer := &Analyzer{
		Model: &model.MockModel{ResponseText: "Stable answer across orderings."},
	}
	chunks := rankedChunks("a", "b", "c")

	result, err := analyzer.Run(context.Background(), "question?", chunks, ReverseOrder, "")
	require.NoError(t, err)

	require.Equal(t, 1.0, result.ChunkOverlap)
	// Overlap at or above 0.5 reports the similarity itself.
	require.Equal(t, result.AnswerSimilarity, result.RetrievalDependence)
	require.Equal(t, 1.0, result.AnswerSimilarity)
}

func TestRunAnswerCollapse(t *testing.T) {
	analyzer := &Analyzer{
		Model: &model.MockModel{ResponseText: "irrelevant"},
	}
	longOriginal := "This original answer is deliberately long enough that removing every retrieved chunk collapses the regenerated answer to a short fallback."

	result, err := analyzer.Run(context.Background(), "question?", rankedChunks("only"), RemoveTop, longOriginal)
	require.NoError(t, err)

	require.Equal(t, longOriginal, result.OriginalAnswer)
	require.Equal(t, noChunksAnswer, result.CounterfactualAnswer)
	require.True(t, result.AnswerCollapsed)
}

func TestRunSemanticSimilarityPreferred(t *testing.T) {
	original := "alpha beta gamma"
	counterfactual := "delta epsilon zeta"
	analyzer := &Analyzer{
		Model: &model.MockModel{Script: []string{original, counterfactual}},
		Embedder: embed.MockEmbedder{Fixed: map[string][]float64{
			original:       {1, 0},
			counterfactual: {0.8, 0.6},
		}},
	}

	result, err := analyzer.Run(context.Background(), "question?", rankedChunks("a", "b"), ReverseOrder, "")
	require.NoError(t, err)

	require.Equal(t, 0.8, result.SemanticSimilarity)
	require.Equal(t, 0.8, result.AnswerSimilarity)
	require.Equal(t, 0.0, result.JaccardSimilarity)
}

func TestRunValidation(t *testing.T) {
	analyzer := &Analyzer{Model: &model.MockModel{}}

	_, err := analyzer.Run(context.Background(), " ", rankedChunks("a"), RemoveTop, "")
	require.True(t, core.IsInputError(err))

	_, err = analyzer.Run(context.Background(), "q", nil, RemoveTop, "")
	require.ErrorIs(t, err, core.ErrEmptyPool)

	missing := &Analyzer{}
	_, err = missing.Run(context.Background(), "q", rankedChunks("a"), RemoveTop, "")
	require.Error(t, err)
}

package ranker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rageval/pkg/core"
	"rageval/pkg/similarity"
)

func testPool() []core.ChunkRecord {
	return []core.ChunkRecord{
		{DocName: "a.txt", Text: "alpha", Embedding: []float64{1, 0}},
		{DocName: "a.txt", Text: "beta", Embedding: []float64{0.9, 0.1}},
		{DocName: "b.txt", Text: "gamma", Embedding: []float64{0, 1}},
	}
}

func TestRankTopKOrdering(t *testing.T) {
	result, err := Rank(testPool(), []float64{1, 0}, "query", Options{
		K:       2,
		Methods: []similarity.Method{similarity.Cosine},
	})
	require.NoError(t, err)

	top := result.ByMethod[similarity.Cosine]
	require.Len(t, top, 2)
	require.Equal(t, "alpha", top[0].Chunk.Text)
	require.Equal(t, "beta", top[1].Chunk.Text)
	require.Equal(t, 1, top[0].Rank)
	require.Equal(t, 2, top[1].Rank)
	require.GreaterOrEqual(t, top[0].PrimaryScore, top[1].PrimaryScore)

	// Every chunk carries scores for all methods from the single pass.
	for _, method := range similarity.AllMethods() {
		require.Contains(t, top[0].AllScores, string(method))
	}
}

func TestRankDefaultsToAllMethods(t *testing.T) {
	result, err := Rank(testPool(), []float64{1, 0}, "query", Options{K: 3})
	require.NoError(t, err)
	require.Len(t, result.ByMethod, len(similarity.AllMethods()))
	require.Len(t, result.Stats, len(similarity.AllMethods()))
}

func TestRankStatsCoverWholePool(t *testing.T) {
	result, err := Rank(testPool(), []float64{1, 0}, "query", Options{
		K:       1,
		Methods: []similarity.Method{similarity.Cosine},
	})
	require.NoError(t, err)

	stats := result.Stats[similarity.Cosine]
	// Min must reflect the orthogonal chunk even though k=1.
	require.InDelta(t, 0.0, stats.Min, 1e-9)
	require.InDelta(t, 1.0, stats.Max, 1e-9)
	require.Greater(t, stats.Avg, stats.Min)
	require.Less(t, stats.Avg, stats.Max)
}

func TestAgreementMatrixProperties(t *testing.T) {
	methods := []similarity.Method{similarity.Cosine, similarity.Dot, similarity.NegL2}
	result, err := Rank(testPool(), []float64{1, 0}, "query", Options{K: 2, Methods: methods})
	require.NoError(t, err)

	for _, m1 := range methods {
		require.Equal(t, 100.0, result.Agreement[m1][m1])
		for _, m2 := range methods {
			require.Equal(t, result.Agreement[m1][m2], result.Agreement[m2][m1])
			require.GreaterOrEqual(t, result.Agreement[m1][m2], 0.0)
			require.LessOrEqual(t, result.Agreement[m1][m2], 100.0)
		}
	}
}

func TestAgreementDiagonalWithSmallPool(t *testing.T) {
	pool := testPool()[:1]
	result, err := Rank(pool, []float64{1, 0}, "query", Options{
		K:       10,
		Methods: []similarity.Method{similarity.Cosine},
	})
	require.NoError(t, err)
	require.Equal(t, 100.0, result.Agreement[similarity.Cosine][similarity.Cosine])
}

func TestRankDocFilter(t *testing.T) {
	result, err := Rank(testPool(), []float64{1, 0}, "query", Options{
		K:       5,
		Methods: []similarity.Method{similarity.Cosine},
		DocName: "b.txt",
	})
	require.NoError(t, err)
	top := result.ByMethod[similarity.Cosine]
	require.Len(t, top, 1)
	require.Equal(t, "gamma", top[0].Chunk.Text)
}

func TestRankErrors(t *testing.T) {
	_, err := Rank(nil, []float64{1, 0}, "query", Options{K: 2})
	require.ErrorIs(t, err, core.ErrEmptyPool)

	_, err = Rank(testPool(), []float64{1, 0}, "query", Options{K: 0})
	require.True(t, core.IsInputError(err))

	_, err = Rank(testPool(), []float64{1, 0}, "query", Options{K: 2, DocName: "missing.txt"})
	require.ErrorIs(t, err, core.ErrNoChunksForDocument)

	_, err = Rank(testPool(), []float64{1, 0}, "query", Options{
		K:       2,
		Methods: []similarity.Method{"euclidean"},
	})
	require.True(t, core.IsInputError(err))
}

func TestRankDoesNotMutatePool(t *testing.T) {
	pool := testPool()
	_, err := Rank(pool, []float64{1, 0}, "query", Options{K: 2})
	require.NoError(t, err)
	require.Equal(t, testPool(), pool)
}

func TestRankDimensionMismatchSortsLast(t *testing.T) {
	pool := append(testPool(), core.ChunkRecord{
		DocName: "c.txt", Text: "delta", Embedding: []float64{1, 0, 0},
	})
	result, err := Rank(pool, []float64{1, 0}, "query", Options{
		K:       len(pool),
		Methods: []similarity.Method{similarity.NegL2},
	})
	require.NoError(t, err)

	top := result.ByMethod[similarity.NegL2]
	last := top[len(top)-1]
	require.Equal(t, "delta", last.Chunk.Text)
	require.Equal(t, similarity.MismatchSentinel, last.PrimaryScore)
}

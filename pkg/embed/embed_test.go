package embed

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	m := MockEmbedder{}

	a1, err := m.EmbedQuery(context.Background(), "same text")
	require.NoError(t, err)
	a2, err := m.EmbedQuery(context.Background(), "same text")
	require.NoError(t, err)
	require.Equal(t, a1, a2)
	require.Len(t, a1, 8)

	b, err := m.EmbedQuery(context.Background(), "different text")
	require.NoError(t, err)
	require.NotEqual(t, a1, b)

	// Vectors are unit length.
	var norm float64
	for _, v := range a1 {
		norm += v * v
	}
	require.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestMockEmbedderFixedOverride(t *testing.T) {
	m := MockEmbedder{Fixed: map[string][]float64{"pinned": {1, 0}}}

	vecs, err := m.Embed(context.Background(), []string{"pinned", "free"})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 0}, vecs[0])
	require.Len(t, vecs[1], 8)

	// The fixed vector is copied, not aliased.
	vecs[0][0] = 99
	again, err := m.EmbedQuery(context.Background(), "pinned")
	require.NoError(t, err)
	require.Equal(t, []float64{1, 0}, again)
}

func TestMockEmbedderDimAndError(t *testing.T) {
	m := MockEmbedder{Dim: 3}
	vec, err := m.EmbedQuery(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, vec, 3)

	broken := MockEmbedder{Err: errors.New("offline")}
	_, err = broken.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
}

package embed

import (
	"context"
	"crypto/sha256"
	"math"

	"rageval/pkg/core"
)

// MockEmbedder produces deterministic unit vectors from a text hash, so the
// same text always maps to the same vector and different texts usually do
// not. Dim defaults to 8.
type MockEmbedder struct {
	NameValue string
	Dim       int
	Err       error
	// Fixed overrides the hash for specific texts, letting tests pin exact
	// geometry between chosen strings.
	Fixed map[string][]float64
}

func (m MockEmbedder) Name() string {
	if m.NameValue == "" {
		return "mock-embedder"
	}
	return m.NameValue
}

func (m MockEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	vecs := make([][]float64, len(texts))
	for i, text := range texts {
		vecs[i] = m.vector(text)
	}
	return vecs, nil
}

func (m MockEmbedder) EmbedQuery(_ context.Context, text string) ([]float64, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.vector(text), nil
}

func (m MockEmbedder) vector(text string) []float64 {
	if fixed, ok := m.Fixed[text]; ok {
		return append([]float64(nil), fixed...)
	}
	dim := m.Dim
	if dim <= 0 {
		dim = 8
	}
	sum := sha256.Sum256([]byte(text))
	vec := make([]float64, dim)
	var norm float64
	for i := 0; i < dim; i++ {
		vec[i] = float64(sum[i%len(sum)]) + 1
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

var _ core.Embedder = MockEmbedder{}

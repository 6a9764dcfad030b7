package core

import "context"

// Model generates completions for prompts.
type Model interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (Response, error)
}

// Embedder turns texts into vectors. Dimensionality is provider-defined and
// treated as opaque; scoring code tolerates mismatches with sentinel scores.
type Embedder interface {
	Name() string
	// Embed returns one vector per input text. An empty input returns an
	// empty result without calling the provider.
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// ChunkStore provides read-only access to the pre-embedded chunk pool.
type ChunkStore interface {
	// List returns all chunks, or only those of docName when it is non-empty.
	List(ctx context.Context, docName string) ([]ChunkRecord, error)
	Documents(ctx context.Context) ([]string, error)
}

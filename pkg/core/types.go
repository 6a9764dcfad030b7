package core

import "time"

// ChunkRecord is one span of source-document text with its precomputed
// embedding. Records are owned by the chunk store and read-only here.
type ChunkRecord struct {
	DocName        string    `json:"doc_name" yaml:"doc_name"`
	Text           string    `json:"text" yaml:"text"`
	Embedding      []float64 `json:"embedding" yaml:"embedding"`
	EmbeddingModel string    `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`
}

// ScoredChunk is a chunk annotated with its scores for one retrieval call.
// AllScores holds every similarity method so cross-method comparison never
// needs a re-score.
type ScoredChunk struct {
	Chunk        ChunkRecord        `json:"chunk" yaml:"chunk"`
	AllScores    map[string]float64 `json:"all_scores" yaml:"all_scores"`
	Rank         int                `json:"rank" yaml:"rank"`
	PrimaryScore float64            `json:"primary_score" yaml:"primary_score"`
}

// Response is a model response plus basic telemetry.
type Response struct {
	Content    string        `json:"content" yaml:"content"`
	TokenUsage TokenUsage    `json:"token_usage" yaml:"token_usage"`
	Latency    time.Duration `json:"latency" yaml:"latency"`
}

// TokenUsage captures token accounting for a request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" yaml:"total_tokens"`
}

// Add accumulates usage across multiple requests.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// GenerateOptions controls model generation behavior.
type GenerateOptions struct {
	Temperature  float32  `json:"temperature" yaml:"temperature"`
	MaxTokens    int      `json:"max_tokens" yaml:"max_tokens"`
	TopP         float32  `json:"top_p" yaml:"top_p"`
	Stop         []string `json:"stop" yaml:"stop"`
	SystemPrompt string   `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`

	// Deterministic pins sampling temperature to zero on the wire. The
	// zero value of Temperature means "provider default", so judging
	// passes that must agree across repeats need their own switch.
	Deterministic bool `json:"deterministic,omitempty" yaml:"deterministic,omitempty"`
}

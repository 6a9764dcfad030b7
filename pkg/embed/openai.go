// Package embed implements the embedder clients behind core.Embedder.
package embed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultOpenAIEmbedModel = "text-embedding-3-small"

type OpenAIEmbedder struct {
	Client     openai.Client
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

func NewOpenAIEmbedderFromEnv(modelName string) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("embed: OPENAI_API_KEY is required")
	}
	if modelName == "" {
		modelName = defaultOpenAIEmbedModel
	}
	return &OpenAIEmbedder{
		Client:     openai.NewClient(option.WithAPIKey(apiKey)),
		Model:      modelName,
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		Backoff:    500 * time.Millisecond,
	}, nil
}

func (e OpenAIEmbedder) Name() string {
	if e.Model == "" {
		return defaultOpenAIEmbedModel
	}
	return e.Model
}

// Embed embeds texts in one request. An empty input returns an empty result
// without a provider call.
func (e OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := e.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := e.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.Name()),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := e.Client.Embeddings.New(attemptCtx, params)
		cancel()
		if err == nil {
			if len(resp.Data) != len(texts) {
				return nil, fmt.Errorf("embed: got %d vectors for %d texts", len(resp.Data), len(texts))
			}
			vecs := make([][]float64, len(resp.Data))
			for i, item := range resp.Data {
				vecs[i] = item.Embedding
			}
			return vecs, nil
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		lastErr = err

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff * time.Duration(attempt+1)):
			}
		}
	}

	return nil, fmt.Errorf("embed: request failed after retries: %w", lastErr)
}

// EmbedQuery embeds a single query string.
func (e OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed: expected one vector, got %d", len(vecs))
	}
	return vecs[0], nil
}

package model

import (
	"context"
	"errors"
	"os"
	"time"

	"google.golang.org/genai"

	"rageval/pkg/core"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"

	// Gemini tail latencies run long enough that the shared default
	// per-attempt timeout trips on healthy requests.
	geminiTimeout = 60 * time.Second
)

// GeminiModel speaks the Gemini API through the genai SDK.
type GeminiModel struct {
	Client     *genai.Client
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// NewGeminiModelFromEnv builds a client from GEMINI_API_KEY (GOOGLE_API_KEY
// also works). The model name falls back to GEMINI_MODEL and then the engine
// default.
func NewGeminiModelFromEnv(modelName string) (*GeminiModel, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("gemini: GEMINI_API_KEY or GOOGLE_API_KEY is required")
	}
	if modelName == "" {
		modelName = os.Getenv("GEMINI_MODEL")
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiModel{Client: client, Model: modelName}, nil
}

func (g GeminiModel) Name() string {
	if g.Model == "" {
		return defaultGeminiModel
	}
	return g.Model
}

// generationConfig maps the engine options onto Gemini's config. Zero
// temperature only reaches the wire when Deterministic is set, matching the
// other providers.
func generationConfig(opts core.GenerateOptions) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if opts.SystemPrompt != "" {
		if parts := genai.Text(opts.SystemPrompt); len(parts) > 0 && parts[0] != nil {
			config.SystemInstruction = parts[0]
		}
	}
	switch {
	case opts.Deterministic:
		config.Temperature = ptrFloat32(0)
	case opts.Temperature > 0:
		config.Temperature = ptrFloat32(float32(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.TopP > 0 {
		config.TopP = ptrFloat32(float32(opts.TopP))
	}
	if len(opts.Stop) > 0 {
		config.StopSequences = opts.Stop
	}
	return config
}

func (g *GeminiModel) Generate(ctx context.Context, prompt string, opts core.GenerateOptions) (core.Response, error) {
	config := generationConfig(opts)
	policy := callPolicy{Timeout: g.Timeout, MaxRetries: g.MaxRetries, Backoff: g.Backoff}
	if policy.Timeout <= 0 {
		policy.Timeout = geminiTimeout
	}
	return policy.call(ctx, "gemini", func(ctx context.Context) (core.Response, error) {
		result, err := g.Client.Models.GenerateContent(ctx, g.Name(), genai.Text(prompt), config)
		if err != nil {
			return core.Response{}, err
		}
		resp := core.Response{Content: result.Text()}
		if result.UsageMetadata != nil {
			resp.TokenUsage.PromptTokens = int(result.UsageMetadata.PromptTokenCount)
			resp.TokenUsage.CompletionTokens = int(result.UsageMetadata.CandidatesTokenCount)
			resp.TokenUsage.TotalTokens = resp.TokenUsage.PromptTokens + resp.TokenUsage.CompletionTokens
		}
		return resp, nil
	})
}

func ptrFloat32(x float32) *float32 { return &x }

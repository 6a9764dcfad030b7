// Package model implements the provider clients behind core.Model. Every
// provider shares one retry policy (per-attempt timeout, bounded retries,
// linear backoff) and differs only in how it maps core.GenerateOptions onto
// its wire parameters.
package model

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"rageval/pkg/core"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIModel speaks the OpenAI Responses API.
type OpenAIModel struct {
	Client     openai.Client
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// NewOpenAIModelFromEnv builds a client from OPENAI_API_KEY. The model name
// falls back to OPENAI_MODEL and then the engine default; OPENAI_BASE_URL
// redirects requests to an OpenAI-compatible proxy when set.
func NewOpenAIModelFromEnv(modelName string) (*OpenAIModel, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("openai: OPENAI_API_KEY is required")
	}
	if modelName == "" {
		modelName = os.Getenv("OPENAI_MODEL")
	}
	if modelName == "" {
		modelName = defaultOpenAIModel
	}
	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(base))
	}
	return &OpenAIModel{
		Client: openai.NewClient(clientOpts...),
		Model:  modelName,
	}, nil
}

func (o OpenAIModel) Name() string {
	if o.Model == "" {
		return defaultOpenAIModel
	}
	return o.Model
}

// requestParams maps the engine options onto a Responses API request.
// Completions are never stored server side.
func (o OpenAIModel) requestParams(prompt string, opts core.GenerateOptions) responses.ResponseNewParams {
	params := responses.ResponseNewParams{
		Model: openai.ChatModel(o.Name()),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
		Store: openai.Bool(false),
	}
	if opts.SystemPrompt != "" {
		params.Instructions = openai.String(opts.SystemPrompt)
	}
	switch {
	case opts.Deterministic:
		params.Temperature = openai.Float(0)
	case opts.Temperature > 0:
		params.Temperature = openai.Float(float64(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(float64(opts.TopP))
	}
	return params
}

func (o OpenAIModel) Generate(ctx context.Context, prompt string, opts core.GenerateOptions) (core.Response, error) {
	params := o.requestParams(prompt, opts)
	policy := callPolicy{Timeout: o.Timeout, MaxRetries: o.MaxRetries, Backoff: o.Backoff}
	return policy.call(ctx, "openai", func(ctx context.Context) (core.Response, error) {
		resp, err := o.Client.Responses.New(ctx, params)
		if err != nil {
			return core.Response{}, err
		}
		return core.Response{
			Content: resp.OutputText(),
			TokenUsage: core.TokenUsage{
				PromptTokens:     int(resp.Usage.InputTokens),
				CompletionTokens: int(resp.Usage.OutputTokens),
				TotalTokens:      int(resp.Usage.TotalTokens),
			},
		}, nil
	})
}

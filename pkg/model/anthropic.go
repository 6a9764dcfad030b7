package model

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"rageval/pkg/core"
)

const (
	defaultAnthropicModel     = "claude-3-5-haiku-latest"
	defaultAnthropicMaxTokens = 2048
)

// AnthropicModel speaks the Anthropic Messages API. MaxTokens is the
// client-level cap; the Messages API refuses requests without one.
type AnthropicModel struct {
	Client     anthropic.Client
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	MaxTokens  int
}

// NewAnthropicModelFromEnv builds a client from ANTHROPIC_API_KEY. The model
// name falls back to ANTHROPIC_MODEL and then the engine default.
func NewAnthropicModelFromEnv(modelName string) (*AnthropicModel, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("anthropic: ANTHROPIC_API_KEY is required")
	}
	if modelName == "" {
		modelName = os.Getenv("ANTHROPIC_MODEL")
	}
	if modelName == "" {
		modelName = defaultAnthropicModel
	}
	return &AnthropicModel{
		Client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		Model:  modelName,
	}, nil
}

func (a AnthropicModel) Name() string {
	if a.Model == "" {
		return defaultAnthropicModel
	}
	return a.Model
}

// maxTokensFor resolves the request cap: per-call options win, then the
// client-level cap, then the engine default.
func (a AnthropicModel) maxTokensFor(opts core.GenerateOptions) int64 {
	switch {
	case opts.MaxTokens > 0:
		return int64(opts.MaxTokens)
	case a.MaxTokens > 0:
		return int64(a.MaxTokens)
	}
	return defaultAnthropicMaxTokens
}

func (a AnthropicModel) messageParams(prompt string, opts core.GenerateOptions) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Name()),
		MaxTokens: a.maxTokensFor(opts),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: opts.SystemPrompt},
		}
	}
	switch {
	case opts.Deterministic:
		params.Temperature = anthropic.Float(0)
	case opts.Temperature > 0:
		params.Temperature = anthropic.Float(float64(opts.Temperature))
	}
	if opts.TopP > 0 {
		params.TopP = anthropic.Float(float64(opts.TopP))
	}
	if len(opts.Stop) > 0 {
		params.StopSequences = opts.Stop
	}
	return params
}

func (a AnthropicModel) Generate(ctx context.Context, prompt string, opts core.GenerateOptions) (core.Response, error) {
	params := a.messageParams(prompt, opts)
	policy := callPolicy{Timeout: a.Timeout, MaxRetries: a.MaxRetries, Backoff: a.Backoff}
	return policy.call(ctx, "anthropic", func(ctx context.Context) (core.Response, error) {
		message, err := a.Client.Messages.New(ctx, params)
		if err != nil {
			return core.Response{}, err
		}
		usage := core.TokenUsage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
		}
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		return core.Response{
			Content:    textBlocks(message.Content),
			TokenUsage: usage,
		}, nil
	})
}

// textBlocks concatenates the text blocks of a reply, skipping tool-use and
// thinking blocks.
func textBlocks(blocks []anthropic.ContentBlockUnion) string {
	var b strings.Builder
	for _, block := range blocks {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

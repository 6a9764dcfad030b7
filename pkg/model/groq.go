package model

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"rageval/pkg/core"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	defaultGroqModel = "llama-3.1-8b-instant"
)

// groqModels are the model ids the Groq endpoint serves. An unknown id
// silently falls back to the default so a stale name never fails a batch.
var groqModels = map[string]string{
	"llama-3.1-8b-instant":                        "Llama 3.1 8B Instant (128k, fast & cheap)",
	"llama-3.3-70b-versatile":                     "Llama 3.3 70B Versatile (128k, powerful)",
	"meta-llama/llama-4-scout-17b-16e-instruct":   "Llama 4 Scout 17B 16E (128k)",
	"meta-llama/llama-4-maverick-17b-128e-instruct": "Llama 4 Maverick 17B 128E (128k)",
	"openai/gpt-oss-20b":                          "GPT OSS 20B (128k)",
	"openai/gpt-oss-120b":                         "GPT OSS 120B (128k)",
	"meta-llama/llama-guard-4-12b":                "Llama Guard 4 12B (Safety)",
	"openai/gpt-oss-safeguard-20b":                "GPT OSS Safeguard 20B (Safety)",
	"moonshotai/kimi-k2-instruct-0905":            "Kimi K2 Instruct 0905 (256k, expensive)",
	"qwen/qwen3-32b":                              "Qwen3 32B (131k)",
}

// GroqModelLabel returns a human label for a Groq model id, or the id
// itself when unknown.
func GroqModelLabel(id string) string {
	if label, ok := groqModels[id]; ok {
		return label
	}
	return id
}

// GroqModels lists the known Groq model ids and labels.
func GroqModels() map[string]string {
	out := make(map[string]string, len(groqModels))
	for id, label := range groqModels {
		out[id] = label
	}
	return out
}

// GroqModel speaks Groq's OpenAI-compatible chat completions endpoint.
type GroqModel struct {
	Client     openai.Client
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

func NewGroqModelFromEnv(modelName string) (*GroqModel, error) {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		return nil, errors.New("groq: GROQ_API_KEY is required")
	}
	if modelName == "" {
		modelName = os.Getenv("GROQ_MODEL")
	}
	if modelName == "" {
		modelName = defaultGroqModel
	}
	if _, ok := groqModels[modelName]; !ok {
		modelName = defaultGroqModel
	}
	return &GroqModel{
		Client: openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(groqBaseURL)),
		Model:  modelName,
	}, nil
}

func (g GroqModel) Name() string {
	if g.Model == "" {
		return defaultGroqModel
	}
	return g.Model
}

// chatParams maps the engine options onto a chat completions request.
func (g GroqModel) chatParams(prompt string, opts core.GenerateOptions) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(opts.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.Name()),
		Messages: messages,
	}
	switch {
	case opts.Deterministic:
		params.Temperature = openai.Float(0)
	case opts.Temperature > 0:
		params.Temperature = openai.Float(float64(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(float64(opts.TopP))
	}
	if len(opts.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: opts.Stop,
		}
	}
	return params
}

func (g GroqModel) Generate(ctx context.Context, prompt string, opts core.GenerateOptions) (core.Response, error) {
	params := g.chatParams(prompt, opts)
	policy := callPolicy{Timeout: g.Timeout, MaxRetries: g.MaxRetries, Backoff: g.Backoff}
	return policy.call(ctx, "groq", func(ctx context.Context) (core.Response, error) {
		resp, err := g.Client.Chat.Completions.New(ctx, params)
		if err != nil {
			return core.Response{}, err
		}
		if len(resp.Choices) == 0 {
			return core.Response{}, errors.New("no choices in response")
		}
		return core.Response{
			Content: resp.Choices[0].Message.Content,
			TokenUsage: core.TokenUsage{
				PromptTokens:     int(resp.Usage.PromptTokens),
				CompletionTokens: int(resp.Usage.CompletionTokens),
				TotalTokens:      int(resp.Usage.TotalTokens),
			},
		}, nil
	})
}

package commands

import (
	"fmt"
	"time"

	"rageval/pkg/cache"
	"rageval/pkg/core"
	"rageval/pkg/embed"
	"rageval/pkg/model"
)

// buildModel constructs a text-generation client for the configured
// provider. An empty name picks the provider's default model.
func buildModel(provider, name string) (core.Model, error) {
	if provider == "" {
		provider = appConfig.Provider
	}
	if provider == "" {
		provider = "mock"
	}
	if name == "" {
		name = appConfig.Model.Name
	}

	var m core.Model
	switch provider {
	case "mock":
		m = &model.MockModel{NameValue: orMock(name), ResponseText: appConfig.Model.MockResponse}
	case "openai":
		client, err := model.NewOpenAIModelFromEnv(name)
		if err != nil {
			return nil, err
		}
		m = client
	case "anthropic":
		client, err := model.NewAnthropicModelFromEnv(name)
		if err != nil {
			return nil, err
		}
		m = client
	case "gemini":
		client, err := model.NewGeminiModelFromEnv(name)
		if err != nil {
			return nil, err
		}
		m = client
	case "groq":
		client, err := model.NewGroqModelFromEnv(name)
		if err != nil {
			return nil, err
		}
		m = client
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	if appConfig.Cache.Enabled {
		completionCache, err := cache.New(appConfig.Cache.Dir, time.Duration(appConfig.Cache.TTLHours)*time.Hour)
		if err != nil {
			return nil, err
		}
		m = model.CachedModel{Model: m, Cache: completionCache}
	}
	return m, nil
}

// buildEmbedder constructs an embedding client. An empty name picks the
// configured or provider-default embedding model.
func buildEmbedder(name string) (core.Embedder, error) {
	provider := appConfig.Embedding.Provider
	if provider == "" {
		provider = "mock"
	}
	if name == "" {
		name = appConfig.Embedding.Model
	}

	switch provider {
	case "mock":
		return embed.MockEmbedder{NameValue: orMockEmbedder(name)}, nil
	case "openai":
		return embed.NewOpenAIEmbedderFromEnv(name)
	}
	return nil, fmt.Errorf("unknown embedding provider: %s", provider)
}

func orMock(name string) string {
	if name == "" {
		return "mock"
	}
	return name
}

func orMockEmbedder(name string) string {
	if name == "" {
		return "mock-embedder"
	}
	return name
}

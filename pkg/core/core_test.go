package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInputError(t *testing.T) {
	err := NewInputError("k must be positive, got %d", -1)
	require.True(t, IsInputError(err))
	require.Contains(t, err.Error(), "invalid input")
	require.Contains(t, err.Error(), "-1")

	require.False(t, IsInputError(errors.New("plain")))
	require.False(t, IsInputError(nil))
}

func TestProviderError(t *testing.T) {
	inner := errors.New("timeout")
	err := NewProviderError("openai", inner)
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "openai")

	require.NoError(t, NewProviderError("openai", nil))
}

func TestTokenUsageAdd(t *testing.T) {
	total := TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}.
		Add(TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3})
	require.Equal(t, TokenUsage{PromptTokens: 11, CompletionTokens: 7, TotalTokens: 18}, total)
}

func TestRateLimiterBurst(t *testing.T) {
	limiter, err := NewRateLimiter(1000, 2)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))
}

func TestRateLimiterRespectsContext(t *testing.T) {
	// Tiny rps so no token frees up within the deadline.
	limiter, err := NewRateLimiter(0.001, 1)
	require.NoError(t, err)

	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, limiter.Wait(ctx))
}

func TestRateLimiterValidation(t *testing.T) {
	_, err := NewRateLimiter(0, 1)
	require.Error(t, err)
}

package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rageval/pkg/core"
)

func TestCallPolicyRetriesTransientErrors(t *testing.T) {
	attempts := 0
	p := callPolicy{Timeout: time.Second, MaxRetries: 2, Backoff: time.Millisecond}

	resp, err := p.call(context.Background(), "fake", func(ctx context.Context) (core.Response, error) {
		attempts++
		if attempts < 3 {
			return core.Response{}, errors.New("boom")
		}
		return core.Response{Content: "ok"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Content)
	require.Equal(t, 3, attempts)
	require.Greater(t, resp.Latency, time.Duration(0))
}

func TestCallPolicyExhaustsRetries(t *testing.T) {
	attempts := 0
	p := callPolicy{Timeout: time.Second, MaxRetries: 1, Backoff: time.Millisecond}

	_, err := p.call(context.Background(), "fake", func(ctx context.Context) (core.Response, error) {
		attempts++
		return core.Response{}, errors.New("boom")
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "fake: request failed after retries")
	require.Equal(t, 2, attempts)
}

func TestCallPolicyDoesNotRetryCancellation(t *testing.T) {
	attempts := 0
	p := callPolicy{Timeout: time.Second, MaxRetries: 3, Backoff: time.Millisecond}

	_, err := p.call(context.Background(), "fake", func(ctx context.Context) (core.Response, error) {
		attempts++
		return core.Response{}, context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}

func TestCallPolicyRetriesEmptyCompletions(t *testing.T) {
	attempts := 0
	p := callPolicy{Timeout: time.Second, MaxRetries: 1, Backoff: time.Millisecond}

	resp, err := p.call(context.Background(), "fake", func(ctx context.Context) (core.Response, error) {
		attempts++
		if attempts == 1 {
			return core.Response{}, nil
		}
		return core.Response{Content: "second try"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, "second try", resp.Content)
	require.Equal(t, 2, attempts)
}

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rageval/pkg/core"
)

func TestSetGetRoundTrip(t *testing.T) {
	c, err := New(t.TempDir(), time.Hour)
	require.NoError(t, err)

	opts := core.GenerateOptions{Temperature: 0.7, MaxTokens: 100}
	resp := core.Response{Content: "cached answer"}
	require.NoError(t, c.Set("model-a", "prompt", opts, resp))

	got, ok := c.Get("model-a", "prompt", opts)
	require.True(t, ok)
	require.Equal(t, "cached answer", got.Content)
}

func TestGetMiss(t *testing.T) {
	c, err := New(t.TempDir(), time.Hour)
	require.NoError(t, err)

	_, ok := c.Get("model-a", "never stored", core.GenerateOptions{})
	require.False(t, ok)
}

func TestKeyDiscriminatesOptions(t *testing.T) {
	c, err := New(t.TempDir(), time.Hour)
	require.NoError(t, err)

	require.NoError(t, c.Set("model-a", "prompt", core.GenerateOptions{Temperature: 0.1}, core.Response{Content: "cold"}))
	require.NoError(t, c.Set("model-a", "prompt", core.GenerateOptions{Temperature: 0.9}, core.Response{Content: "hot"}))

	cold, ok := c.Get("model-a", "prompt", core.GenerateOptions{Temperature: 0.1})
	require.True(t, ok)
	require.Equal(t, "cold", cold.Content)

	hot, ok := c.Get("model-a", "prompt", core.GenerateOptions{Temperature: 0.9})
	require.True(t, ok)
	require.Equal(t, "hot", hot.Content)

	// A different model name misses even with identical prompt and options.
	_, ok = c.Get("model-b", "prompt", core.GenerateOptions{Temperature: 0.1})
	require.False(t, ok)

	// Deterministic requests key separately from provider-default sampling.
	require.NoError(t, c.Set("model-a", "prompt", core.GenerateOptions{Deterministic: true}, core.Response{Content: "pinned"}))
	_, ok = c.Get("model-a", "prompt", core.GenerateOptions{})
	require.False(t, ok)
	pinned, ok := c.Get("model-a", "prompt", core.GenerateOptions{Deterministic: true})
	require.True(t, ok)
	require.Equal(t, "pinned", pinned.Content)
}

func TestSlashedModelNamesRoundTrip(t *testing.T) {
	c, err := New(t.TempDir(), time.Hour)
	require.NoError(t, err)

	name := "meta-llama/llama-guard-4-12b"
	require.NoError(t, c.Set(name, "prompt", core.GenerateOptions{}, core.Response{Content: "guarded"}))

	got, ok := c.Get(name, "prompt", core.GenerateOptions{})
	require.True(t, ok)
	require.Equal(t, "guarded", got.Content)
}

func TestPruneRemovesExpired(t *testing.T) {
	c, err := New(t.TempDir(), time.Hour)
	require.NoError(t, err)

	require.NoError(t, c.Set("model-a", "prompt", core.GenerateOptions{}, core.Response{Content: "old"}))
	time.Sleep(time.Millisecond)

	c.TTL = time.Nanosecond
	removed, err := c.Prune()
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, ok := c.Get("model-a", "prompt", core.GenerateOptions{})
	require.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c, err := New(t.TempDir(), time.Nanosecond)
	require.NoError(t, err)

	require.NoError(t, c.Set("model-a", "prompt", core.GenerateOptions{}, core.Response{Content: "stale"}))
	time.Sleep(time.Millisecond)

	_, ok := c.Get("model-a", "prompt", core.GenerateOptions{})
	require.False(t, ok)
}

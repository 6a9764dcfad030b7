package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rageval/pkg/core"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 2
	defaultBackoff    = 500 * time.Millisecond
)

// callPolicy bounds one provider call: a per-attempt timeout plus a bounded
// number of retries with linearly growing backoff. Caller cancellation and
// attempt deadlines are terminal; provider errors and empty completions are
// retried until the attempts run out.
type callPolicy struct {
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// call runs attempt under the policy and stamps the latency of the winning
// attempt onto the response.
func (p callPolicy) call(ctx context.Context, provider string, attempt func(context.Context) (core.Response, error)) (core.Response, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	var lastErr error
	for try := 0; try <= retries; try++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		resp, err := attempt(attemptCtx)
		cancel()
		if err == nil && resp.Content == "" {
			err = errors.New("empty response")
		}
		if err == nil {
			resp.Latency = time.Since(start)
			return resp, nil
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return core.Response{}, err
		}
		lastErr = err

		if try < retries {
			select {
			case <-ctx.Done():
				return core.Response{}, ctx.Err()
			case <-time.After(backoff * time.Duration(try+1)):
			}
		}
	}

	return core.Response{}, fmt.Errorf("%s: request failed after retries: %w", provider, lastErr)
}

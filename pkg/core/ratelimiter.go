package core

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// RateLimiter throttles provider calls. The batch harness shares one across
// its workers so concurrency never exceeds the provider's request quota.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// NewRateLimiter returns a limiter admitting rps requests per second with
// the given burst capacity.
func NewRateLimiter(rps float64, burst int) (RateLimiter, error) {
	if rps <= 0 {
		return nil, errors.New("rate limiter: rps must be > 0")
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst), nil
}

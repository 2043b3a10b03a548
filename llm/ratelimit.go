package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to a backend shared by concurrent runs
type RateLimited struct {
	Backend
	limiter *rate.Limiter
}

// NewRateLimited wraps b with a limiter of rps requests per second.
// A non-positive rps returns b unchanged.
func NewRateLimited(b Backend, rps float64, burst int) Backend {
	if rps <= 0 {
		return b
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{Backend: b, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Invoke waits for a token before calling the wrapped backend
func (r *RateLimited) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return r.Backend.Invoke(ctx, req)
}

package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles artifact reads issued by concurrent workers.
//
// It is a token bucket shared by all workers of one run. Each artifact open
// consumes one token; burst lets a freshly started pool open several
// artifacts at once. A zero rate disables throttling.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing readsPerSecond sustained reads with the given
// burst. A zero rate means unlimited; a zero burst defaults to the rate.
func New(readsPerSecond, burst uint) *RateLimiter {
	if readsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = readsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(readsPerSecond), int(burst)),
	}
}

// Unlimited reports whether the limiter lets everything through.
func (r *RateLimiter) Unlimited() bool {
	return r == nil || r.limiter.Limit() == rate.Inf
}

// Wait blocks until a read may start or ctx is done. A nil limiter never waits.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r.Unlimited() {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

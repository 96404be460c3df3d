package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter bounds how often page requests are sent.
type Limiter interface {
	// Allow reports whether a request may go out now, consuming a token if so.
	Allow() bool
	// Wait blocks until a request may go out or ctx is done.
	Wait(ctx context.Context) error
}

// TokenBucket is a Limiter refilled at a steady per-minute rate.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows requestsPerMinute requests with bursts of up to burst.
// A non-positive rate disables limiting.
func NewTokenBucket(requestsPerMinute, burst int) *TokenBucket {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &TokenBucket{limiter: rate.NewLimiter(limit, burst)}
}

func (tb *TokenBucket) Allow() bool {
	return tb.limiter.Allow()
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

// Interval returns the spacing between requests once the burst is spent.
func (tb *TokenBucket) Interval() time.Duration {
	if tb.limiter.Limit() == rate.Inf {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(tb.limiter.Limit()))
}

type unlimited struct{}

// Unlimited returns a Limiter that never blocks.
func Unlimited() Limiter {
	return unlimited{}
}

func (unlimited) Allow() bool                    { return true }
func (unlimited) Wait(ctx context.Context) error { return ctx.Err() }

// ratelimit.go implements token-bucket rate limiting for provider REST APIs.
//
// The CLOB enforces per-category limits measured in requests per 10-second
// windows. A tight poll interval combined with many book chunks can burn
// through that allowance quickly, so listing and book requests each pass
// through a continuously-refilling bucket before hitting the wire.
package source

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a rate limiter with continuous refill. Callers block in
// Wait() until a token is available or the context is cancelled.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64   // current available tokens (fractional allowed)
	capacity float64   // maximum burst size
	rate     float64   // tokens refilled per second
	lastTime time.Time // last time tokens were calculated
}

// NewTokenBucket creates a rate limiter with the given capacity and refill rate.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			// retry
		}
	}
}

// RateLimiter groups token buckets by CLOB endpoint category.
type RateLimiter struct {
	Markets *TokenBucket // GET /markets — market listing pages
	Books   *TokenBucket // POST /books — batch order book reads
}

// NewRateLimiter creates buckets tuned to the CLOB's published read limits.
// Capacities are the 10-second burst allowance, rates 1/10th of it for a
// smooth refill.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		Markets: NewTokenBucket(100, 10), // 1000 per 10s window
		Books:   NewTokenBucket(150, 15), // 1500 per 10s window
	}
}

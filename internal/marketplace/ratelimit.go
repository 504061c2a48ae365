// ratelimit.go implements token-bucket rate limiting for the marketplace API.
//
// The marketplace enforces per-category limits measured in requests per
// minute. This file provides a smooth token-bucket implementation that
// refills continuously (rather than in per-minute bursts) to avoid hitting
// hard limits.
//
// Three buckets are maintained:
//   - Read:    120 burst / 2 per sec (listing state, history, subscription)
//   - Bid:     30 burst / 0.5 per sec (all bid submissions)
//   - AutoBid: 10 burst / 0.2 per sec (auto-bid order lifecycle)
package marketplace

import (
	"context"
	"sync"
	"time"
)

// TokenBucket implements a token-bucket rate limiter with continuous refill.
// Callers block in Wait() until a token is available or the context is cancelled.
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

		// Calculate wait time for next token
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

// RateLimiter groups token buckets by marketplace endpoint category.
// Each operation must call the appropriate bucket's Wait() before making
// the HTTP request.
type RateLimiter struct {
	Read    *TokenBucket // listing state, bid history, subscription status
	Bid     *TokenBucket // POST /bids, per-lot bids, POST /bids/monster
	AutoBid *TokenBucket // auto-bid order create/read/delete
}

// NewRateLimiter creates rate limiters tuned to the marketplace's published
// limits. Capacities are the per-minute burst allowances, rates 1/60th for
// smooth refill.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		Read:    NewTokenBucket(120, 2),   // 120 per minute
		Bid:     NewTokenBucket(30, 0.5),  // 30 per minute
		AutoBid: NewTokenBucket(10, 0.2),  // 10 per minute
	}
}

package api

import (
	"context"
	"sync"
	"time"
)

// RateLimiter defines the interface for rate limiting implementations
type RateLimiter interface {
	// Wait blocks until it's safe to make another API call or ctx is done
	Wait(ctx context.Context) error
}

// SimpleRateLimiter enforces a minimum delay between calls
type SimpleRateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	minDelay time.Duration
}

// NewSimpleRateLimiter creates a new simple rate limiter with minimum delay between calls
func NewSimpleRateLimiter(minDelay time.Duration) *SimpleRateLimiter {
	return &SimpleRateLimiter{
		minDelay: minDelay,
	}
}

// Wait blocks until minDelay has passed since the previous call.
func (rl *SimpleRateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if elapsed := time.Since(rl.lastCall); elapsed < rl.minDelay {
		timer := time.NewTimer(rl.minDelay - elapsed)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	rl.lastCall = time.Now()
	return nil
}

// NoOpRateLimiter performs no rate limiting
type NoOpRateLimiter struct{}

// NewNoOpRateLimiter creates a rate limiter that performs no limiting
func NewNoOpRateLimiter() *NoOpRateLimiter {
	return &NoOpRateLimiter{}
}

// Wait returns immediately unless ctx is already done
func (rl *NoOpRateLimiter) Wait(ctx context.Context) error {
	return ctx.Err()
}

// Package ratelimit implements the token-bucket rate limiter that gates
// every outbound probe before it reaches a circuit breaker or timeout.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/ports"
)

// TokenBucket accounts tokens for a single key. Capacity and rate are fixed
// at construction; tokens refill monotonically and are never granted or
// revoked by wall-clock jumps.
type TokenBucket struct {
	mu         sync.Mutex
	clock      ports.Clock
	capacity   float64
	rate       float64 // tokens per second
	tokens     float64
	lastUpdate time.Time
}

// NewTokenBucket creates a bucket starting full, at capacity tokens.
func NewTokenBucket(clock ports.Clock, capacity, rate float64) *TokenBucket {
	return &TokenBucket{
		clock:      clock,
		capacity:   capacity,
		rate:       rate,
		tokens:     capacity,
		lastUpdate: clock.Now(),
	}
}

// Capacity returns the bucket's maximum token count.
func (b *TokenBucket) Capacity() float64 { return b.capacity }

// Rate returns the bucket's refill rate in tokens per second.
func (b *TokenBucket) Rate() float64 { return b.rate }

// Consume attempts to take n tokens without blocking. It returns true and
// decrements tokens iff at least n tokens are available after refill.
// n == 0 always succeeds without modifying tokens.
func (b *TokenBucket) Consume(n float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()

	if b.tokens >= n {
		b.tokens -= n
		return true
	}
	return false
}

// Wait blocks until n tokens are available, or ctx is cancelled. On
// cancellation it returns ctx.Err() and leaves the bucket's tokens
// untouched. If n exceeds capacity this never returns (the caller must
// guard n <= capacity).
func (b *TokenBucket) Wait(ctx context.Context, n float64) error {
	for {
		if b.Consume(n) {
			return nil
		}

		sleep := b.sleepDurationLocked(n)
		if err := b.clock.SleepContext(ctx, sleep); err != nil {
			return err
		}
	}
}

// AvailableTokens returns the current token count without refilling or
// taking the lock — an unsynchronized estimate intended for stats/metrics.
func (b *TokenBucket) AvailableTokens() float64 {
	return b.tokens
}

func (b *TokenBucket) sleepDurationLocked(n float64) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	needed := n - b.tokens
	if needed <= 0 {
		return 0
	}
	return time.Duration(needed / b.rate * float64(time.Second))
}

// refillLocked must be called with mu held. It is O(1) regardless of
// elapsed duration.
func (b *TokenBucket) refillLocked() {
	now := b.clock.Now()
	elapsed := now.Sub(b.lastUpdate)
	b.lastUpdate = now

	if elapsed <= 0 {
		return
	}
	b.tokens = min(b.capacity, b.tokens+elapsed.Seconds()*b.rate)
}

package ratelimit

import (
	"context"
	"sync"

	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/ports"
)

// KeyFunc derives the bucket key actually used for lookup from a caller's
// identifier. The identity function is used when none is supplied.
type KeyFunc func(key string) string

// RateLimiter is a keyed registry of token buckets sharing one capacity/rate
// configuration. A given key maps to exactly one bucket for the limiter's
// lifetime unless explicitly reset; operations on one key never affect
// another key's bucket.
type RateLimiter struct {
	mu       sync.Mutex
	clock    ports.Clock
	capacity float64
	rate     float64
	keyFunc  KeyFunc
	buckets  map[string]*TokenBucket
}

// Option configures a RateLimiter at construction time.
type Option func(*RateLimiter)

// WithKeyFunc overrides the default identity key-derivation function.
func WithKeyFunc(f KeyFunc) Option {
	return func(l *RateLimiter) { l.keyFunc = f }
}

// New creates a RateLimiter with the given per-key capacity and refill rate.
func New(clock ports.Clock, capacity, rate float64, opts ...Option) *RateLimiter {
	l := &RateLimiter{
		clock:    clock,
		capacity: capacity,
		rate:     rate,
		keyFunc:  func(k string) string { return k },
		buckets:  make(map[string]*TokenBucket),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check lazily creates the bucket for key if needed, starting it full, then
// attempts to consume n tokens without blocking.
func (l *RateLimiter) Check(key string, n float64) bool {
	return l.bucketFor(key).Consume(n)
}

// Wait is like Check but blocks (cancellably) until tokens are available.
func (l *RateLimiter) Wait(ctx context.Context, key string, n float64) error {
	return l.bucketFor(key).Wait(ctx, n)
}

// Reset drops the bucket for key. The next operation on that key recreates
// it full.
func (l *RateLimiter) Reset(key string) {
	bucketKey := l.keyFunc(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, bucketKey)
}

// ResetAll drops every bucket.
func (l *RateLimiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = make(map[string]*TokenBucket)
}

func (l *RateLimiter) bucketFor(key string) *TokenBucket {
	bucketKey := l.keyFunc(key)

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[bucketKey]
	if !ok {
		b = NewTokenBucket(l.clock, l.capacity, l.rate)
		l.buckets[bucketKey] = b
	}
	return b
}

// Stats is a point-in-time snapshot of the limiter's state.
type Stats struct {
	BucketCount int
	Capacity    float64
	Rate        float64
	// AvailableTokens is keyed by the derived bucket key; each value is an
	// unsynchronized estimate (read without the bucket's lock), per spec.
	AvailableTokens map[string]float64
}

// Stats returns a snapshot of the limiter's buckets.
func (l *RateLimiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	available := make(map[string]float64, len(l.buckets))
	for key, b := range l.buckets {
		available[key] = b.AvailableTokens()
	}

	return Stats{
		BucketCount:     len(l.buckets),
		Capacity:        l.capacity,
		Rate:            l.rate,
		AvailableTokens: available,
	}
}

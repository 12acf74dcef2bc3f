// Package testutil holds fakes shared across package tests: a no-op
// logger and clocks that let rate limiter, breaker, and timeout tests
// control elapsed time deterministically instead of sleeping for real.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/ports"
)

var _ ports.Logger = (*NoopLogger)(nil)

// NoopLogger discards all log output.
type NoopLogger struct{}

func (l *NoopLogger) Info(string, ...any)  {}
func (l *NoopLogger) Warn(string, ...any)  {}
func (l *NoopLogger) Error(string, ...any) {}
func (l *NoopLogger) Debug(string, ...any) {}

var _ ports.Clock = (*FixedClock)(nil)

// FixedClock returns a fixed time and never sleeps.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }
func (c *FixedClock) SleepContext(context.Context, time.Duration) error {
	return nil
}

var _ ports.Clock = (*ManualClock)(nil)

// ManualClock is a monotonic clock advanced explicitly by tests. SleepContext
// advances the clock by the requested duration instead of actually
// sleeping, unless ctx is already cancelled.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now returns the clock's current value.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SleepContext advances the clock by d and returns nil, or returns
// ctx.Err() immediately if ctx is already done.
func (c *ManualClock) SleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	c.Advance(d)
	return nil
}

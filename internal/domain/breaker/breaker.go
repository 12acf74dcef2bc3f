// Package breaker implements the three-state circuit breaker that protects
// downstream probe targets from repeated calls while they are failing.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/ports"
)

// State is one of CLOSED, OPEN, HALF_OPEN.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Execute when the circuit is not admitting requests.
// It is distinguishable from downstream errors so callers can fail fast
// without treating it as further evidence of downstream ill-health.
var ErrOpen = errors.New("breaker: circuit is open")

// OpenError wraps ErrOpen with the breaker's name.
type OpenError struct {
	Name string
}

func (e *OpenError) Error() string  { return fmt.Sprintf("circuit %q is open", e.Name) }
func (e *OpenError) Unwrap() error { return ErrOpen }

// CircuitBreaker is a per-name CLOSED/OPEN/HALF_OPEN state machine. All
// state transitions for a single breaker are totally ordered; no caller
// observes an intermediate state.
type CircuitBreaker struct {
	mu sync.Mutex

	name             string
	clock            ports.Clock
	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration

	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

// Params configures a breaker at creation time. Once a breaker exists its
// params are immutable.
type Params struct {
	FailureThreshold int
	SuccessThreshold int
	RecoveryTimeout  time.Duration
}

// New creates a breaker in the CLOSED state with zeroed counters.
func New(name string, clock ports.Clock, p Params) *CircuitBreaker {
	if p.FailureThreshold <= 0 {
		p.FailureThreshold = 5
	}
	if p.SuccessThreshold <= 0 {
		p.SuccessThreshold = 1
	}
	return &CircuitBreaker{
		name:             name,
		clock:            clock,
		failureThreshold: p.FailureThreshold,
		successThreshold: p.SuccessThreshold,
		recoveryTimeout:  p.RecoveryTimeout,
		state:            Closed,
	}
}

// Name returns the breaker's name.
func (b *CircuitBreaker) Name() string { return b.name }

// IsClosed reports whether the breaker is currently CLOSED.
func (b *CircuitBreaker) IsClosed() bool { return b.currentState() == Closed }

// IsOpen reports whether the breaker is currently OPEN.
func (b *CircuitBreaker) IsOpen() bool { return b.currentState() == Open }

// IsHalfOpen reports whether the breaker is currently HALF_OPEN.
func (b *CircuitBreaker) IsHalfOpen() bool { return b.currentState() == HalfOpen }

func (b *CircuitBreaker) currentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// CanExecute evaluates the current state, performing the OPEN -> HALF_OPEN
// transition if the recovery window has elapsed, and reports whether the
// caller may proceed.
func (b *CircuitBreaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canExecuteLocked()
}

func (b *CircuitBreaker) canExecuteLocked() bool {
	switch b.state {
	case Closed:
		return true
	case Open:
		if b.clock.Now().Sub(b.lastFailureTime) >= b.recoveryTimeout {
			b.transitionLocked(HalfOpen)
			return true
		}
		return false
	default: // HalfOpen
		return true
	}
}

// RecordSuccess applies the success rules for the current state: CLOSED
// zeroes the failure count; HALF_OPEN increments the success count and
// transitions to CLOSED once success_threshold is reached.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0

	if b.state == HalfOpen {
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.transitionLocked(Closed)
		}
	}
}

// RecordFailure applies the failure rules for the current state: a single
// HALF_OPEN failure reopens the circuit; a CLOSED failure trips it once
// failure_threshold is reached.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailureTime = b.clock.Now()

	if b.state == HalfOpen {
		b.transitionLocked(Open)
		return
	}

	if b.state == Closed {
		b.failureCount++
		if b.failureCount >= b.failureThreshold {
			b.transitionLocked(Open)
		}
	}
}

// Execute runs fn under breaker protection: if admission is denied it
// returns an *OpenError without calling fn; otherwise it calls fn and
// records success or failure based on the returned error.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !b.CanExecute() {
		return &OpenError{Name: b.name}
	}

	err := fn(ctx)
	if err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// Reset forces the breaker to CLOSED with zeroed counters.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionLocked(Closed)
}

// transitionLocked must be called with mu held. Every transition zeroes
// the counters relevant to the new state.
func (b *CircuitBreaker) transitionLocked(s State) {
	b.state = s
	switch s {
	case Closed:
		b.failureCount = 0
		b.successCount = 0
	case Open, HalfOpen:
		b.successCount = 0
	}
}

// Stats is a point-in-time snapshot of the breaker's state.
type Stats struct {
	Name             string
	State            State
	FailureCount     int
	SuccessCount     int
	FailureThreshold int
	SuccessThreshold int
	RecoveryTimeout  time.Duration
}

// Stats returns a snapshot of the breaker's counters and configuration.
func (b *CircuitBreaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Name:             b.name,
		State:            b.state,
		FailureCount:     b.failureCount,
		SuccessCount:     b.successCount,
		FailureThreshold: b.failureThreshold,
		SuccessThreshold: b.successThreshold,
		RecoveryTimeout:  b.recoveryTimeout,
	}
}

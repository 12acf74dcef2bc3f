package audit

import (
	"sync"

	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/ports"
)

// Sink is a pluggable consumer of audit events (console, file, or a
// caller-supplied handler). Sinks run outside the logger's critical
// section and are not trusted to be fast, side-effect-free, or panic-safe.
type Sink interface {
	Write(Event)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Write(e Event) { f(e) }

// Logger is the append-only audit log core: ordered filters, ordered
// sinks, and counters. It holds no file handles itself — those live in
// infrastructure sinks — so it never needs OS-resource cleanup.
type Logger struct {
	mu      sync.Mutex
	logger  ports.Logger
	filters []Filter
	sinks   []Sink

	totalEvents  int
	eventsByType map[EventType]int
}

// New creates an empty Logger. logger is used only for diagnostics about
// the logger's own operation (e.g. a sink panicking), never for the
// audit trail itself.
func New(logger ports.Logger) *Logger {
	return &Logger{
		logger:       logger,
		eventsByType: make(map[EventType]int),
	}
}

// AddFilter registers a filter, evaluated in registration order. There is
// no removal API.
func (l *Logger) AddFilter(f Filter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filters = append(l.filters, f)
}

// AddHandler registers a sink, invoked in registration order after an
// event survives every filter. There is no removal API.
func (l *Logger) AddHandler(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Log constructs an event, applies filters in order (dropping silently on
// the first false), updates counters, then calls every sink. Sink panics
// or the caller wrapping a sink in an error-returning adapter are caught
// and logged, never propagated.
func (l *Logger) Log(eventType EventType, message string, severity Severity, userID, sourceIP, target *string, details map[string]any) {
	event := NewEvent(eventType, message, severity, userID, sourceIP, target, details)

	l.mu.Lock()
	filters := l.filters
	sinks := l.sinks
	l.mu.Unlock()

	for _, f := range filters {
		if !f(event) {
			return
		}
	}

	l.mu.Lock()
	l.totalEvents++
	l.eventsByType[eventType]++
	l.mu.Unlock()

	for _, s := range sinks {
		l.dispatch(s, event)
	}
}

// dispatch runs a single sink outside the logger's critical section,
// containing any panic so one bad sink cannot take down the caller.
func (l *Logger) dispatch(s Sink, e Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("audit sink panicked", "error", r)
		}
	}()
	s.Write(e)
}

// Stats is a point-in-time snapshot of the logger's counters.
type Stats struct {
	TotalEvents  int
	EventsByType map[EventType]int
}

// Stats returns a snapshot of total and per-type event counts.
func (l *Logger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	byType := make(map[EventType]int, len(l.eventsByType))
	for k, v := range l.eventsByType {
		byType[k] = v
	}
	return Stats{TotalEvents: l.totalEvents, EventsByType: byType}
}

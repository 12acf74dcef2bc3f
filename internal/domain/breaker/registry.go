package breaker

import (
	"sync"

	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/ports"
)

// Registry is a named lookup / lazy-creation registry of breakers. Once a
// breaker is created its parameters are immutable; Registry holds no
// removal API — breakers live for the registry's lifetime.
type Registry struct {
	mu       sync.Mutex
	clock    ports.Clock
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates an empty breaker registry.
func NewRegistry(clock ports.Clock) *Registry {
	return &Registry{
		clock:    clock,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the existing breaker for name, or creates one with the
// supplied params if this is the first request for that name.
func (r *Registry) Get(name string, p Params) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[name]
	if !ok {
		b = New(name, r.clock, p)
		r.breakers[name] = b
	}
	return b
}

// GetAllStats returns a snapshot of every registered breaker's stats. Each
// returned record is taken under that breaker's own lock and is therefore
// internally consistent, though the registry-wide snapshot is not a single
// atomic point in time.
func (r *Registry) GetAllStats() map[string]Stats {
	r.mu.Lock()
	snapshot := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		snapshot = append(snapshot, b)
	}
	r.mu.Unlock()

	stats := make(map[string]Stats, len(snapshot))
	for _, b := range snapshot {
		stats[b.Name()] = b.Stats()
	}
	return stats
}

package source

import (
	"time"

	"github.com/flemzord/finbridge/internal/breaker"
	"github.com/flemzord/finbridge/internal/keypool"
)

// Entry couples an adapter with its process-wide resilience state: the key
// pool, the circuit breaker, and the per-call deadline for this provider.
type Entry struct {
	Adapter Adapter
	Pool    *keypool.Pool
	Breaker *breaker.Breaker
	Timeout time.Duration
}

// Name returns the provider tag of the underlying adapter.
func (e *Entry) Name() Name {
	return e.Adapter.Name()
}

// Available reports whether the provider can be attempted at all: a
// provider with no credentials is skipped by the dispatcher outright.
func (e *Entry) Available() bool {
	return e.Pool.Size() > 0
}

// Supports reports whether the adapter's capability map covers op.
func (e *Entry) Supports(op Operation) bool {
	_, ok := e.Adapter.Capabilities()[op]
	return ok
}

// Handler returns the adapter's handler for op, or false.
func (e *Entry) Handler(op Operation) (Handler, bool) {
	h, ok := e.Adapter.Capabilities()[op]
	return h, ok
}

// Registry holds every configured provider entry. Immutable after startup;
// the mutable state lives inside each entry's pool and breaker.
type Registry struct {
	entries map[Name]*Entry
	order   []Name
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Name]*Entry)}
}

// Add registers an entry. Later adds for the same name are ignored.
func (r *Registry) Add(e *Entry) {
	name := e.Name()
	if _, exists := r.entries[name]; exists {
		return
	}
	r.entries[name] = e
	r.order = append(r.order, name)
}

// Get returns the entry for name.
func (r *Registry) Get(name Name) (*Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered providers in registration order.
func (r *Registry) Names() []Name {
	out := make([]Name, len(r.order))
	copy(out, r.order)
	return out
}

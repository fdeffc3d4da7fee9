package fusebox

import (
	"context"
	"sync"
)

// Registry tracks one CircuitBreaker per peer identifier, creating each
// lazily on first use with a shared configuration. Breakers are fully
// isolated from one another: failures on one peer never affect another.
type Registry struct {
	mutex    sync.RWMutex
	breakers map[string]*CircuitBreaker
	opts     []Option
}

// NewRegistry creates a registry whose breakers all share the given
// options. As with New, a registry configured without a classifier never
// trips any breaker.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		opts:     opts,
	}
}

// Breaker returns the breaker guarding peer, creating it on first
// reference. Concurrent first access for the same peer yields the same
// instance.
func (r *Registry) Breaker(peer string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[peer]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[peer]; exists {
		return cb
	}

	cb = New(peer, r.opts...)
	r.breakers[peer] = cb
	return cb
}

// Acquire obtains a scoped guard for one call to peer. It returns ErrOpen
// when the peer's circuit denies the call.
func (r *Registry) Acquire(peer string) (*Guard, error) {
	return r.Breaker(peer).Acquire()
}

// Do runs fn under peer's breaker. See CircuitBreaker.Do.
func (r *Registry) Do(ctx context.Context, peer string, fn func(context.Context) error) error {
	return r.Breaker(peer).Do(ctx, fn)
}

// Reset discards all breakers. Peers referenced afterwards start fresh.
func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}

// States returns the current state of every breaker in the registry.
func (r *Registry) States() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	states := make(map[string]State, len(r.breakers))
	for peer, cb := range r.breakers {
		states[peer] = cb.State()
	}
	return states
}

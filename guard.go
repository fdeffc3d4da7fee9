package fusebox

import (
	"context"
	"sync"
)

// Guard is a scoped acquisition of one permitted call. It guarantees the
// breaker hears about the call's outcome exactly once, however the call
// ends; settles after the first are no-ops.
type Guard struct {
	cb   *CircuitBreaker
	once sync.Once
}

// Acquire asks the breaker for permission to issue one call. It returns
// ErrOpen when the circuit denies the call; otherwise the returned Guard
// must be settled with the call's outcome.
func (cb *CircuitBreaker) Acquire() (*Guard, error) {
	if !cb.Allow() {
		return nil, ErrOpen
	}
	return &Guard{cb: cb}, nil
}

// Settle reports the outcome of the guarded call. A nil err counts as
// success; anything else is handed to the breaker's classifier. Only the
// first call has any effect.
func (g *Guard) Settle(err error) {
	g.once.Do(func() {
		if err != nil {
			g.cb.RecordFailure(err)
		} else {
			g.cb.RecordSuccess()
		}
	})
}

// Do runs fn under the breaker. When the circuit denies the call, Do
// returns ErrOpen without invoking fn. Otherwise fn runs, its outcome is
// reported exactly once even if fn panics, and its error is returned to
// the caller unchanged. The breaker observes outcomes; it never rewrites
// them.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(context.Context) error) error {
	g, err := cb.Acquire()
	if err != nil {
		return err
	}

	settled := false
	defer func() {
		if !settled {
			// fn panicked. Settle without a verdict so the breaker is not
			// wedged, then let the panic continue.
			g.Settle(errAborted)
		}
	}()

	err = fn(ctx)
	settled = true
	g.Settle(err)
	return err
}

// Run executes fn under cb and returns its result. This is a convenience
// wrapper for guarded functions that return a value.
func Run[T any](ctx context.Context, cb *CircuitBreaker, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := cb.Do(ctx, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	return result, err
}

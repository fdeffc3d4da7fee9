package fusebox

import "context"

// SettleFrom waits for the outcome of an asynchronously completing call and
// settles the guard with it. The outcome is read from done; if ctx is
// cancelled first, the guard settles with ctx.Err() instead. Context errors
// are unclassified unless the breaker's configuration says otherwise, so a
// cancelled call does not count against the peer by default.
//
// SettleFrom blocks and starts no goroutine of its own; the breaker never
// initiates concurrency. Callers bridging callback- or channel-based
// completion decide where it runs:
//
//	g, err := cb.Acquire()
//	if err != nil {
//		return err
//	}
//	done := make(chan error, 1)
//	client.FetchAsync(req, func(err error) { done <- err })
//	return g.SettleFrom(ctx, done)
//
// The settled outcome is returned either way.
func (g *Guard) SettleFrom(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		g.Settle(err)
		return err
	case <-ctx.Done():
		g.Settle(ctx.Err())
		return ctx.Err()
	}
}

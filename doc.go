// Package fusebox implements the circuit breaker pattern for calls to
// unreliable remote peers.
//
// A circuit breaker watches the failure rate of a peer and, once too many
// failures land inside a sliding window, stops issuing calls for a cooldown
// period. It has three states:
//
//   - CLOSED: Normal operation, calls pass through
//   - OPEN: Peer failing, calls rejected immediately with ErrOpen
//   - HALF-OPEN: One probe call tests whether the peer recovered
//
// A Registry tracks many peers at once, creating one breaker per peer
// identifier on first use:
//
//	registry := fusebox.NewRegistry(
//		fusebox.WithMaxFailures(3),
//		fusebox.WithResetTimeout(10*time.Second),
//		fusebox.WithErrorKinds(io.ErrUnexpectedEOF, syscall.ECONNREFUSED),
//	)
//
//	err := registry.Do(ctx, "billing", func(ctx context.Context) error {
//		return client.Charge(ctx, amount)
//	})
//	if fusebox.IsOpen(err) {
//		// The circuit was open, so we did not even try to reach the peer.
//		return useCachedTotal()
//	}
//
// Only errors matching the configured kinds count toward tripping the
// circuit; everything else propagates to the caller without moving the
// breaker. A breaker configured without error kinds never trips.
package fusebox

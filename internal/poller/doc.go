// Package poller implements periodic health probing of peers through a
// circuit-guarded HTTP client. Peers whose circuit is open are skipped
// until the breaker re-admits them.
package poller

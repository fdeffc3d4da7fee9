// Package metrics provides telemetry for fusebox circuit breakers.
//
// It uses a channel-based event pipeline: breaker hooks enqueue events
// without blocking, and a dedicated collector goroutine feeds two sinks:
//   - Prometheus vectors for state, transitions, rejections and window failures
//   - a JSON aggregate served over HTTP for quick inspection
//
// Example usage:
//
//	collector := metrics.NewCollector("fusebox", 1000, logger)
//	collector.MustRegister(prometheus.DefaultRegisterer)
//	collector.Start(ctx)
//
//	breakers := fusebox.NewRegistry(
//		fusebox.WithErrorKinds(errBackendDown),
//		fusebox.OnStateChange(collector.StateHook()),
//		fusebox.OnReject(collector.RejectHook()),
//	)
//
// Shutdown drains pending events so transitions arriving late are not lost.
package metrics

package fusebox

import (
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking calls
	StateHalfOpen              // Testing with one probe
)

// CircuitBreaker guards calls to a single remote peer. It counts classified
// failures over a sliding window and, once the count goes strictly above
// MaxFailures, rejects calls for ResetTimeout before letting a single probe
// through to test recovery.
//
// All methods are safe for concurrent use.
type CircuitBreaker struct {
	name string
	cfg  settings
	log  *slog.Logger

	mutex    sync.Mutex
	state    State
	failures []time.Time
	openedAt time.Time
	probedAt time.Time
	probing  bool
}

// New creates a circuit breaker for the named peer. Without options the
// breaker uses the package defaults and, because the default classifier
// matches nothing, never trips; supply WithErrorKinds or WithClassifier to
// tell it which errors count.
func New(name string, opts ...Option) *CircuitBreaker {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &CircuitBreaker{
		name:  name,
		cfg:   cfg,
		log:   cfg.log.With(slog.String("peer", name)),
		state: StateClosed,
	}
}

// Name returns the peer identifier this breaker guards.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Allow reports whether a call may be issued right now.
//
// In StateClosed every call is permitted. In StateOpen calls are denied
// until ResetTimeout has elapsed since the circuit opened; the first call
// after that moves the breaker to StateHalfOpen and is admitted as the
// single probe. While the probe is outstanding all other callers are
// denied. A probe that never settles does not wedge the breaker: after
// another ResetTimeout it is presumed lost and the next caller probes
// instead.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		now := cb.cfg.clock.Now()
		if now.Sub(cb.openedAt) >= cb.cfg.resetTimeout {
			cb.setState(StateHalfOpen)
			cb.probing = true
			cb.probedAt = now
			cb.log.Info("circuit half-open, letting one probe through",
				slog.Int("failures", len(cb.failures)))
			return true
		}

		cb.deny()
		return false
	case StateHalfOpen:
		now := cb.cfg.clock.Now()
		if !cb.probing || now.Sub(cb.probedAt) >= cb.cfg.resetTimeout {
			// The previous probe settled without a verdict or was
			// abandoned; this caller becomes the probe.
			cb.probing = true
			cb.probedAt = now
			return true
		}

		cb.deny()
		return false
	default:
		return true
	}
}

// RecordSuccess reports that a permitted call completed successfully.
//
// A successful probe closes the circuit and clears the failure history.
// Successes in StateClosed do not erase recorded failures; only time
// removes them from the window.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.setState(StateClosed)
		cb.failures = nil
		cb.probing = false
		cb.log.Info("circuit closed")
	case StateOpen:
		// The guard denied this call, so nobody should be reporting on it.
		cb.log.Warn("success reported while circuit open",
			slog.Int("failures", len(cb.failures)))
	}
}

// RecordFailure reports that a permitted call failed with err.
//
// Errors the configured classifier does not match are not this breaker's
// concern: they leave the state untouched, except that an unclassified
// outcome in StateHalfOpen releases the probe slot so the next caller may
// test the peer. A classified failure re-opens a half-open circuit
// immediately; in StateClosed it is stamped with the current time, stamps
// older than TimeUnit are pruned, and the circuit opens once the remaining
// count is strictly greater than MaxFailures.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if err == nil || !cb.cfg.classify(err) {
		if cb.state == StateHalfOpen {
			cb.probing = false
		}
		return
	}

	switch cb.state {
	case StateHalfOpen:
		cb.openedAt = cb.cfg.clock.Now()
		cb.probing = false
		cb.setState(StateOpen)
		cb.log.Warn("circuit re-opened", slog.Any("err", err))
	case StateClosed:
		now := cb.cfg.clock.Now()
		cb.failures = append(cb.failures, now)
		cb.prune(now)
		if len(cb.failures) > cb.cfg.maxFailures {
			failures := len(cb.failures)
			cb.openedAt = now
			cb.setState(StateOpen)
			cb.failures = nil
			cb.log.Warn("circuit opened",
				slog.Int("failures", failures),
				slog.Any("err", err))
		}
	case StateOpen:
		// Already open.
	}
}

// State returns the current state without changing it.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Failures returns the number of classified failures currently inside the
// sliding window.
func (cb *CircuitBreaker) Failures() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateClosed {
		cb.prune(cb.cfg.clock.Now())
	}
	return len(cb.failures)
}

// prune drops failure stamps that have aged out of the window. A stamp
// exactly TimeUnit old no longer counts. Stamps arrive in clock order, so
// only a prefix is ever dropped.
func (cb *CircuitBreaker) prune(now time.Time) {
	cutoff := now.Add(-cb.cfg.timeUnit)

	drop := 0
	for drop < len(cb.failures) && !cb.failures[drop].After(cutoff) {
		drop++
	}
	if drop > 0 {
		cb.failures = append(cb.failures[:0], cb.failures[drop:]...)
	}
}

func (cb *CircuitBreaker) setState(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to

	if cb.cfg.onStateChange != nil {
		cb.cfg.onStateChange(cb.name, from, to, len(cb.failures))
	}
}

func (cb *CircuitBreaker) deny() {
	cb.log.Debug("call denied, circuit open",
		slog.Int("failures", len(cb.failures)))

	if cb.cfg.onReject != nil {
		cb.cfg.onReject(cb.name)
	}
}

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

package fusebox

import (
	"log/slog"
	"time"
)

// Defaults applied when no option overrides them.
const (
	DefaultMaxFailures  = 3
	DefaultResetTimeout = 10 * time.Second
	DefaultTimeUnit     = 60 * time.Second
)

// StateChangeFunc observes state transitions. It runs with the breaker
// lock held, so it must be fast and must not call back into the breaker.
type StateChangeFunc func(peer string, from, to State, failures int)

// RejectFunc observes calls denied because the circuit is open. Same
// locking caveat as StateChangeFunc.
type RejectFunc func(peer string)

type settings struct {
	maxFailures  int
	resetTimeout time.Duration
	timeUnit     time.Duration
	classify     Classifier
	clock        Clock
	log          *slog.Logger

	onStateChange StateChangeFunc
	onReject      RejectFunc
}

func defaultSettings() settings {
	return settings{
		maxFailures:  DefaultMaxFailures,
		resetTimeout: DefaultResetTimeout,
		timeUnit:     DefaultTimeUnit,
		classify:     neverClassify,
		clock:        systemClock{},
		log:          slog.Default(),
	}
}

// Option configures a CircuitBreaker, or every breaker a Registry creates.
type Option func(*settings)

// WithMaxFailures sets how many classified failures inside the sliding
// window are tolerated. The circuit opens on the failure that makes the
// count strictly greater than n. Default is 3.
func WithMaxFailures(n int) Option {
	return func(s *settings) {
		s.maxFailures = n
	}
}

// WithResetTimeout sets how long the circuit stays open before a single
// probe call is let through. Default is 10 seconds.
func WithResetTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.resetTimeout = d
	}
}

// WithTimeUnit sets the length of the sliding window over which failures
// are counted. Default is 60 seconds.
func WithTimeUnit(d time.Duration) Option {
	return func(s *settings) {
		s.timeUnit = d
	}
}

// WithClassifier sets the predicate deciding which errors count as
// failures. Without it the breaker classifies nothing and never trips.
func WithClassifier(c Classifier) Option {
	return func(s *settings) {
		if c != nil {
			s.classify = c
		}
	}
}

// WithErrorKinds is shorthand for WithClassifier(KindOf(kinds...)).
func WithErrorKinds(kinds ...error) Option {
	return WithClassifier(KindOf(kinds...))
}

// WithClock sets the time source. Useful for tests.
func WithClock(clock Clock) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger that receives state-transition and denial
// events. The breaker attaches its peer name to every record. Defaults to
// slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// OnStateChange sets a hook observing every state transition.
func OnStateChange(fn StateChangeFunc) Option {
	return func(s *settings) {
		s.onStateChange = fn
	}
}

// OnReject sets a hook observing every denied call.
func OnReject(fn RejectFunc) Option {
	return func(s *settings) {
		s.onReject = fn
	}
}

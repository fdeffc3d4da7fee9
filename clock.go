package fusebox

import "time"

// Clock supplies the breaker's notion of time. The returned values must be
// monotonically non-decreasing. Injected so tests can simulate time passage
// deterministically; the default reads the system clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

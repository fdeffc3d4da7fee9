package fusebox

import "errors"

// ErrOpen is returned when a call is denied because the circuit is open.
// It is distinct from anything the guarded call can produce, so callers can
// tell "the peer failed" apart from "we never tried" and fall back
// accordingly.
var ErrOpen = errors.New("circuit open")

// errAborted settles guards whose work never produced an outcome, such as a
// panic inside Do. It matches no configured error kind, so the breaker
// treats it as unclassified.
var errAborted = errors.New("guarded call aborted")

// IsOpen reports whether err is the breaker's own denial.
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpen)
}

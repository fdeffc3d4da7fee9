package fusebox

import "errors"

// Classifier decides whether an error from a guarded call counts as a
// circuit failure. Errors it rejects still propagate to the caller but
// never move the breaker.
type Classifier func(error) bool

// KindOf classifies errors matching any of the given kinds, in the
// errors.Is sense. This is the usual way to enumerate which failures a
// breaker cares about:
//
//	fusebox.KindOf(io.ErrUnexpectedEOF, syscall.ECONNREFUSED)
func KindOf(kinds ...error) Classifier {
	return func(err error) bool {
		for _, kind := range kinds {
			if errors.Is(err, kind) {
				return true
			}
		}
		return false
	}
}

// TypeOf classifies errors whose chain contains a T, in the errors.As
// sense. Useful for error types carrying data, like *net.OpError.
func TypeOf[T error]() Classifier {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

// AnyOf combines classifiers; an error counts as a failure when any of
// them says so. Nil entries are skipped.
func AnyOf(cs ...Classifier) Classifier {
	return func(err error) bool {
		for _, c := range cs {
			if c != nil && c(err) {
				return true
			}
		}
		return false
	}
}

// Not inverts a classifier.
func Not(c Classifier) Classifier {
	return func(err error) bool {
		return !c(err)
	}
}

// neverClassify is the default: no outcome ever counts as a failure, so an
// unconfigured breaker never trips. Which errors indicate a sick peer is
// the caller's policy.
func neverClassify(error) bool {
	return false
}

package middleware

import "errors"

// ErrUpstreamStatus marks responses whose status code reached the
// transport's failure threshold. Breakers that should trip on server
// errors list it in their error kinds:
//
//	fusebox.WithErrorKinds(middleware.ErrUpstreamStatus)
var ErrUpstreamStatus = errors.New("upstream returned failure status")

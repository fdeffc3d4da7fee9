package middleware

import (
	"fmt"
	"net/http"

	"github.com/angeloszaimis/fusebox"
)

// DefaultFailureStatus is the lowest status code counted as an upstream
// failure when no override is configured.
const DefaultFailureStatus = http.StatusInternalServerError

// KeyFunc derives the peer identifier a request is accounted under.
type KeyFunc func(*http.Request) string

// Transport is an http.RoundTripper that runs every request through the
// circuit breaker of the peer it targets. Requests to an open circuit fail
// immediately with fusebox.ErrOpen and never reach the network.
//
// Transport decides nothing about which errors trip a circuit; it only
// reports outcomes. Give the registry a classifier that includes
// ErrUpstreamStatus to trip on server error responses.
type Transport struct {
	base          http.RoundTripper
	breakers      *fusebox.Registry
	keyFor        KeyFunc
	failureStatus int
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithBase sets the underlying round tripper. Defaults to
// http.DefaultTransport.
func WithBase(rt http.RoundTripper) TransportOption {
	return func(t *Transport) {
		if rt != nil {
			t.base = rt
		}
	}
}

// WithKeyFunc sets how requests map to peers. The default keys by
// request host, so every upstream host gets its own circuit.
func WithKeyFunc(fn KeyFunc) TransportOption {
	return func(t *Transport) {
		if fn != nil {
			t.keyFor = fn
		}
	}
}

// WithFailureStatus sets the lowest response status code reported as an
// upstream failure. Defaults to 500.
func WithFailureStatus(code int) TransportOption {
	return func(t *Transport) {
		t.failureStatus = code
	}
}

// NewTransport wraps a round tripper with per-peer circuit breaking backed
// by the given registry.
func NewTransport(breakers *fusebox.Registry, opts ...TransportOption) *Transport {
	t := &Transport{
		base:          http.DefaultTransport,
		breakers:      breakers,
		keyFor:        defaultKey,
		failureStatus: DefaultFailureStatus,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper.
//
// Transport errors settle the guard with the error itself. Responses at or
// above the failure status settle as a failure wrapping ErrUpstreamStatus
// but are still returned to the caller untouched; a 500 is a valid HTTP
// response, not a transport error.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	peer := t.keyFor(req)

	g, err := t.breakers.Acquire(peer)
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		g.Settle(err)
		return nil, err
	}

	if resp.StatusCode >= t.failureStatus {
		g.Settle(fmt.Errorf("%s returned %d: %w", peer, resp.StatusCode, ErrUpstreamStatus))
	} else {
		g.Settle(nil)
	}

	return resp, nil
}

func defaultKey(req *http.Request) string {
	return req.URL.Host
}

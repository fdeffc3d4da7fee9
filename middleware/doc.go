// Package middleware integrates fusebox with net/http clients. Its
// Transport wraps any http.RoundTripper and gives each upstream host its
// own circuit, failing fast with fusebox.ErrOpen while a host is sick.
package middleware

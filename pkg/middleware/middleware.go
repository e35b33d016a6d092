// Package middleware holds the HTTP middleware applied to modules and route
// groups: request logging, CORS and the chain that orders them.
package middleware

import (
	"net/http"
	"slices"
)

// Func wraps a handler with additional behavior.
type Func = func(http.Handler) http.Handler

// Stack is an ordered middleware chain. The first entry is the outermost.
type Stack []Func

// Use appends fns to the end of the chain.
func (s *Stack) Use(fns ...Func) {
	*s = append(*s, fns...)
}

// With returns a new chain of s followed by fns. s is not modified.
func (s Stack) With(fns ...Func) Stack {
	return append(slices.Clip(s), fns...)
}

// Apply wraps h so that a request passes through the chain in order.
func (s Stack) Apply(h http.Handler) http.Handler {
	for _, fn := range slices.Backward(s) {
		h = fn(h)
	}
	return h
}

// Package routes registers grouped handlers on an http.ServeMux using the
// method-qualified patterns of the standard mux.
package routes

import (
	"net/http"

	"github.com/JaimeStill/missive/pkg/middleware"
)

// Route binds an HTTP method and pattern to a handler. An empty Pattern
// registers the group prefix itself.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group organizes routes under a common prefix. Middleware wraps every route
// in the group and its children; a child's own middleware runs inside its
// parent's.
type Group struct {
	Prefix     string
	Middleware middleware.Stack
	Routes     []Route
	Children   []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		g.register(mux, "", nil)
	}
}

func (g Group) register(mux *http.ServeMux, parentPrefix string, parent middleware.Stack) {
	prefix := parentPrefix + g.Prefix
	stack := parent.With(g.Middleware...)

	for _, route := range g.Routes {
		mux.Handle(route.Method+" "+prefix+route.Pattern, stack.Apply(route.Handler))
	}
	for _, child := range g.Children {
		child.register(mux, prefix, stack)
	}
}

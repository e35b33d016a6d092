// Package module mounts self-contained HTTP handlers under a path prefix.
// Each module owns its middleware; the Router picks a module by prefix and
// falls back to a native mux for everything else.
package module

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/missive/pkg/middleware"
)

// Module serves a handler beneath a fixed prefix such as "/api" or "/api/v1".
// The prefix is stripped before the inner handler sees the request.
type Module struct {
	prefix     string
	router     http.Handler
	middleware middleware.Stack
}

// New creates a Module. It panics if prefix is empty, relative, ends in a
// slash, or contains an empty segment.
func New(prefix string, router http.Handler) *Module {
	if err := validatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{prefix: prefix, router: router}
}

// Use adds middleware to the module's stack.
func (m *Module) Use(mw middleware.Func) {
	m.middleware.Use(mw)
}

// Handler returns the inner router wrapped with the module's middleware.
func (m *Module) Handler() http.Handler {
	return m.middleware.Apply(m.router)
}

// Matches reports whether path falls under the module prefix.
func (m *Module) Matches(path string) bool {
	rest, ok := strings.CutPrefix(path, m.prefix)
	return ok && (rest == "" || rest[0] == '/')
}

// Serve strips the module prefix from the request path and dispatches to the
// inner router.
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	path := strings.TrimPrefix(req.URL.Path, m.prefix)
	if path == "" {
		path = "/"
	}

	r := req.Clone(req.Context())
	r.URL.Path = path
	r.URL.RawPath = ""

	m.Handler().ServeHTTP(w, r)
}

func validatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	case strings.HasSuffix(prefix, "/"):
		return fmt.Errorf("module prefix must not end with /: %s", prefix)
	case strings.Contains(prefix, "//"):
		return fmt.Errorf("module prefix has an empty segment: %s", prefix)
	}
	return nil
}

package module

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// Router dispatches to the mounted module with the longest matching prefix
// and falls back to a native ServeMux for unmatched paths.
type Router struct {
	modules []*Module
	native  *http.ServeMux
}

// NewRouter creates a Router with no modules and an empty native mux.
func NewRouter() *Router {
	return &Router{native: http.NewServeMux()}
}

// HandleNative registers a handler on the native fallback mux.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.native.HandleFunc(pattern, handler)
}

// Mount registers m. It panics if another module already owns the prefix.
func (r *Router) Mount(m *Module) {
	for _, existing := range r.modules {
		if existing.prefix == m.prefix {
			panic(fmt.Sprintf("module prefix already mounted: %s", m.prefix))
		}
	}

	r.modules = append(r.modules, m)
	slices.SortFunc(r.modules, func(a, b *Module) int {
		return cmp.Compare(len(b.prefix), len(a.prefix))
	})
}

// ServeHTTP trims a trailing slash, then dispatches to the first matching
// module or the native mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if p := req.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
		req.URL.Path = strings.TrimSuffix(p, "/")
	}

	for _, m := range r.modules {
		if m.Matches(req.URL.Path) {
			m.Serve(w, req)
			return
		}
	}

	r.native.ServeHTTP(w, req)
}

// Package module mounts prefixed sub-applications, each with its own router
// and middleware, under a single root handler.
package module

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/middleware"
)

// Module serves every request under a single-level prefix such as "/v1".
// The prefix is stripped before the inner router sees the request.
type Module struct {
	prefix string
	router http.Handler
	stack  middleware.Stack

	once    sync.Once
	handler http.Handler
}

// New creates a Module. It panics if prefix is empty, lacks a leading slash,
// or has more than one segment.
func New(prefix string, router http.Handler) *Module {
	if err := validatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{prefix: prefix, router: router}
}

// Use adds middleware. It has no effect once the module has served a request.
func (m *Module) Use(mw func(http.Handler) http.Handler) {
	m.stack.Use(mw)
}

// Handler returns the router wrapped in the module's middleware. The chain is
// assembled on first use.
func (m *Module) Handler() http.Handler {
	m.once.Do(func() {
		m.handler = m.stack.Apply(m.router)
	})
	return m.handler
}

// Prefix returns the module's path prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Serve strips the prefix and dispatches to the wrapped router.
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	m.Handler().ServeHTTP(w, strip(req, m.prefix))
}

func strip(req *http.Request, prefix string) *http.Request {
	path := strings.TrimPrefix(req.URL.Path, prefix)
	if path == "" {
		path = "/"
	}

	r := req.Clone(req.Context())
	r.URL.Path = path
	r.URL.RawPath = ""
	return r
}

func validatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	case strings.Count(prefix, "/") != 1:
		return fmt.Errorf("module prefix must be single-level sub-path: %s", prefix)
	}
	return nil
}

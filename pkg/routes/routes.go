// Package routes declares handler tables and registers them on a ServeMux.
package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler. An empty Method
// matches every method.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group shares a path prefix across its routes and nested children.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds every route in groups to mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		register(mux, "", g)
	}
}

func register(mux *http.ServeMux, parent string, g Group) {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		pattern := prefix + r.Pattern
		if r.Method != "" {
			pattern = r.Method + " " + pattern
		}
		mux.HandleFunc(pattern, r.Handler)
	}
	for _, child := range g.Children {
		register(mux, prefix, child)
	}
}

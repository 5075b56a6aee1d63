package middleware

import "net/http"

// Middleware wraps an http.HandlerFunc with cross-cutting behavior.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// Chain applies middlewares around handler so the first one listed runs
// outermost.
func Chain(handler http.HandlerFunc, middlewares ...Middleware) http.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

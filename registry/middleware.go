package registry

import (
	"context"
	"net/http"
)

type ctxKey struct{}

// NewContext returns a context carrying the registry.
func NewContext(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext returns the registry carried by the context, falling back to
// the default registry.
func FromContext(ctx context.Context) *Registry {
	if r, ok := ctx.Value(ctxKey{}).(*Registry); ok {
		return r
	}
	return Default()
}

// FromRequest returns the registry for an HTTP request.
func FromRequest(req *http.Request) *Registry {
	return FromContext(req.Context())
}

// Middleware attaches the default registry to each request's context, so
// handlers and later middleware can reach components without globals.
func Middleware(next http.Handler) http.Handler {
	return WithRegistry(Default())(next)
}

// WithRegistry returns middleware attaching a specific registry, e.g. a
// per-test one.
func WithRegistry(r *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(NewContext(req.Context(), r)))
		})
	}
}

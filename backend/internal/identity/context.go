package identity

import (
	"context"
	"net/http"
)

type contextKey struct{}

// WithPrincipal attaches the verified principal to the request context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromRequest returns the verified principal for the request, or nil when
// the route was not behind the auth middleware.
func FromRequest(r *http.Request) *Principal {
	p, _ := r.Context().Value(contextKey{}).(*Principal)
	return p
}

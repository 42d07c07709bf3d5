// Package requestid carries a per-request correlation id through contexts
// and the X-Request-ID header.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header carrying the id.
const Header = "X-Request-ID"

type contextKey struct{}

// New returns a fresh random id.
func New() string {
	return uuid.NewString()
}

// With stores id on ctx.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// From extracts the id stored on ctx, or "".
func From(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}

// Ensure returns the id stored on ctx, generating and storing one when
// missing.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := From(ctx); id != "" {
		return ctx, id
	}
	id := New()
	return With(ctx, id), id
}

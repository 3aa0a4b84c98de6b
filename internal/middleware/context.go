package middleware

import (
	"context"

	"training-app/internal/auth"
)

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const identityContextKey = contextKey("identity")

// SetIdentity adds the verified identity to the request context.
func SetIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// GetIdentity retrieves the identity stored by Authenticate.
func GetIdentity(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(auth.Identity)
	return id, ok
}

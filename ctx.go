package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// DefaultContextKey is the router locals key holding the request Identity
const DefaultContextKey = "user"

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// Identity is the authenticated principal attached to a request.
// Roles is always empty, the token carries no capabilities.
type Identity struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles"`
}

// NewIdentity returns an Identity for subject with no roles
func NewIdentity(subject string) Identity {
	return Identity{Subject: subject, Roles: []string{}}
}

// WithIdentity sets the Identity in the given context
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the Identity in the context
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	if !ok || raw.Subject == "" {
		return Identity{}, false
	}
	return raw, true
}

// GetRouterIdentity extracts the Identity from router locals
func GetRouterIdentity(c router.Context, key string) (Identity, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := c.Locals(key)
	if raw == nil {
		return Identity{}, false
	}
	identity, ok := raw.(Identity)
	if !ok || identity.Subject == "" {
		return Identity{}, false
	}
	return identity, true
}

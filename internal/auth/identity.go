// Package auth resolves who is calling: OIDC sign-in, signed session
// tokens backed by a server-side record, and the request-context plumbing
// that carries the result.
package auth

import "context"

// Identity is the authenticated user as far as the application cares.
type Identity struct {
	UserID string
	Email  string
}

type ctxKey int

const (
	identityKey ctxKey = iota
	tokenKey
)

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// WithToken returns a context carrying the raw session token, so mutation
// entry points can verify it again instead of trusting a cached identity.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFrom returns the token stored by WithToken.
func TokenFrom(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey).(string)
	return tok
}

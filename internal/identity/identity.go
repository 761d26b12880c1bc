// Package identity carries the authenticated caller through request contexts.
// The rest of the system treats it as an opaque claim set: user id, email and
// the admin flag, already verified by the token layer.
package identity

import "context"

// Identity is an authenticated caller.
type Identity struct {
	UserID int64
	Email  string
	Admin  bool
}

type ctxKey struct{}

// WithContext returns a context carrying the identity.
func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the identity stored by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

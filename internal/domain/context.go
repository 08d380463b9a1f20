package domain

import "context"

type ownerKey struct{}

// WithOwner attaches the authenticated owner identity to the context.
// The server's identity middleware is the only writer.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext returns the authenticated owner identity, if present.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok && owner != ""
}

package auth

import "context"

// Role values recognised by the API. Roles come from the JWT's app metadata
// and default to customer.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Identity is the authenticated caller extracted from a verified token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type identityContextKey struct{}

// WithIdentity stores the identity in the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity set by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	return identity, ok
}

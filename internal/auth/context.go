package auth

import (
	"context"

	"github.com/schoolhub/membership/internal/permission"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID     string
	SystemRole permission.SystemRole
}

type ctxKey string

const identityKey ctxKey = "identity"

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// RequireAuth returns the caller identity or ErrAuthenticationRequired.
func RequireAuth(ctx context.Context) (*Identity, error) {
	id := IdentityFromContext(ctx)
	if id == nil {
		return nil, ErrAuthenticationRequired
	}
	return id, nil
}

// RequireRole checks the platform role. SuperAdmin satisfies every
// requirement; any other role must match exactly.
func RequireRole(ctx context.Context, required permission.SystemRole) (*Identity, error) {
	id, err := RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !RoleSatisfies(id.SystemRole, required) {
		return nil, ErrInsufficientPermissions
	}
	return id, nil
}

func RoleSatisfies(have, required permission.SystemRole) bool {
	return have == permission.SystemSuperAdmin || have == required
}

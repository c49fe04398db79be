package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/membership/internal/permission"
)

func TestRequireAuth(t *testing.T) {
	_, err := RequireAuth(context.Background())
	assert.ErrorIs(t, err, ErrAuthenticationRequired)

	ctx := WithIdentity(context.Background(), &Identity{UserID: "u1", SystemRole: permission.SystemUser})
	id, err := RequireAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
}

func TestRequireRole_SuperAdminSatisfiesEverything(t *testing.T) {
	ctx := WithIdentity(context.Background(), &Identity{UserID: "root", SystemRole: permission.SystemSuperAdmin})
	for _, required := range permission.AllSystemRoles {
		t.Run(string(required), func(t *testing.T) {
			_, err := RequireRole(ctx, required)
			assert.NoError(t, err)
		})
	}
}

func TestRequireRole_UserOnlySatisfiesUser(t *testing.T) {
	ctx := WithIdentity(context.Background(), &Identity{UserID: "u1", SystemRole: permission.SystemUser})
	for _, required := range permission.AllSystemRoles {
		t.Run(string(required), func(t *testing.T) {
			_, err := RequireRole(ctx, required)
			if required == permission.SystemUser {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientPermissions)
		})
	}
}

func TestRequireRole_Anonymous(t *testing.T) {
	_, err := RequireRole(context.Background(), permission.SystemUser)
	assert.ErrorIs(t, err, ErrAuthenticationRequired)
}

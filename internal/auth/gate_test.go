package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/store/memstore"
)

func seedMember(t *testing.T, db *memstore.DB, userID, schoolID string, role permission.SchoolRole, mutate func(*models.Member)) *models.Member {
	t.Helper()
	m := models.NewMember(userID, schoolID, role, time.Now())
	if mutate != nil {
		mutate(m)
	}
	_, err := db.Store().Members.Insert(context.Background(), m)
	require.NoError(t, err)
	return m
}

func TestGate_RequireTenantAction(t *testing.T) {
	db := memstore.Open()
	seedMember(t, db, "owner", "s1", permission.RoleOwner, nil)
	seedMember(t, db, "teacher", "s1", permission.RoleTeacher, nil)
	seedMember(t, db, "suspended", "s1", permission.RoleDirector, func(m *models.Member) {
		m.Status = models.MemberSuspended
	})
	seedMember(t, db, "removed", "s1", permission.RoleDirector, func(m *models.Member) {
		m.IsDeleted = true
	})

	gate := NewGate(db.Store().Members)

	tests := []struct {
		name    string
		id      *Identity
		school  string
		wantErr error
	}{
		{"anonymous", nil, "s1", ErrAuthenticationRequired},
		{"owner allowed", &Identity{UserID: "owner"}, "s1", nil},
		{"teacher lacks role", &Identity{UserID: "teacher"}, "s1", ErrInsufficientPermissions},
		{"stranger", &Identity{UserID: "stranger"}, "s1", ErrNotAMember},
		{"other school", &Identity{UserID: "owner"}, "s2", ErrNotAMember},
		{"suspended member", &Identity{UserID: "suspended"}, "s1", ErrNotAMember},
		{"soft deleted member", &Identity{UserID: "removed"}, "s1", ErrNotAMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := gate.RequireTenantAction(context.Background(), tt.id, tt.school, permission.CanManageMembers)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id.UserID, m.UserID)
		})
	}
}

func TestGate_RequirePermission_HonorsExplicitGrants(t *testing.T) {
	db := memstore.Open()
	seedMember(t, db, "teacher", "s1", permission.RoleTeacher, nil)
	seedMember(t, db, "granted", "s1", permission.RoleTeacher, func(m *models.Member) {
		m.Permissions = []permission.Permission{permission.ManageRoles}
	})
	gate := NewGate(db.Store().Members)
	ctx := context.Background()

	_, err := gate.RequirePermission(ctx, &Identity{UserID: "teacher"}, "s1", permission.ManageRoles)
	assert.ErrorIs(t, err, ErrInsufficientPermissions)

	_, err = gate.RequirePermission(ctx, &Identity{UserID: "granted"}, "s1", permission.ManageRoles)
	assert.NoError(t, err)

	_, err = gate.RequirePermission(ctx, &Identity{UserID: "teacher"}, "s1", permission.ViewStudents)
	assert.NoError(t, err)
}

func TestGate_RequireMember(t *testing.T) {
	db := memstore.Open()
	seedMember(t, db, "parent", "s1", permission.RoleParent, nil)
	gate := NewGate(db.Store().Members)

	m, err := gate.RequireMember(context.Background(), &Identity{UserID: "parent"}, "s1")
	require.NoError(t, err)
	assert.Equal(t, permission.RoleParent, m.Role)

	_, err = gate.RequireMember(context.Background(), &Identity{UserID: "parent"}, "s2")
	assert.ErrorIs(t, err, ErrNotAMember)
}

package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/store"
)

func TestMemberStore_UniqueActivePair(t *testing.T) {
	ctx := context.Background()
	s := Open().Store().Members

	first := models.NewMember("u1", "s1", permission.RoleTeacher, time.Now())
	id, err := s.Insert(ctx, first)
	require.NoError(t, err)

	_, err = s.Insert(ctx, models.NewMember("u1", "s1", permission.RoleStaff, time.Now()))
	assert.ErrorIs(t, err, store.ErrDuplicate)

	require.NoError(t, s.SoftDelete(ctx, id, "admin"))
	_, err = s.Insert(ctx, models.NewMember("u1", "s1", permission.RoleStaff, time.Now()))
	assert.NoError(t, err, "a soft-deleted member does not block a new one")
}

func TestMemberStore_SoftDeleteKeepsDocument(t *testing.T) {
	ctx := context.Background()
	s := Open().Store().Members

	id, err := s.Insert(ctx, models.NewMember("u1", "s1", permission.RoleTeacher, time.Now()))
	require.NoError(t, err)
	require.NoError(t, s.SoftDelete(ctx, id, "admin"))

	m, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, m.IsDeleted)
	assert.Equal(t, models.MemberInactive, m.Status)
	assert.Equal(t, "admin", m.DeletedBy)
	assert.NotNil(t, m.DeletedAt)

	_, err = s.FindByUserAndSchool(ctx, "u1", "s1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemberStore_FindFilters(t *testing.T) {
	ctx := context.Background()
	s := Open().Store().Members

	_, err := s.Insert(ctx, models.NewMember("u1", "s1", permission.RoleOwner, time.Now()))
	require.NoError(t, err)
	id2, err := s.Insert(ctx, models.NewMember("u2", "s1", permission.RoleTeacher, time.Now()))
	require.NoError(t, err)
	_, err = s.Insert(ctx, models.NewMember("u3", "s1", permission.RoleTeacher, time.Now()))
	require.NoError(t, err)
	_, err = s.Insert(ctx, models.NewMember("u1", "s2", permission.RoleTeacher, time.Now()))
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, id2, models.MemberSuspended, "u1"))

	tests := []struct {
		name   string
		filter store.MemberFilter
		want   int
	}{
		{"school", store.MemberFilter{SchoolID: "s1"}, 3},
		{"school active", store.MemberFilter{SchoolID: "s1", ActiveOnly: true}, 2},
		{"role", store.MemberFilter{SchoolID: "s1", Role: permission.RoleTeacher}, 2},
		{"user", store.MemberFilter{UserID: "u1"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Count(ctx, tt.filter)
			require.NoError(t, err)
			assert.EqualValues(t, tt.want, n)
		})
	}
}

func TestMemberStore_AddPermissionsIsSetUnion(t *testing.T) {
	ctx := context.Background()
	s := Open().Store().Members

	id, err := s.Insert(ctx, models.NewMember("u1", "s1", permission.RoleTeacher, time.Now()))
	require.NoError(t, err)
	require.NoError(t, s.AddPermissions(ctx, id, []permission.Permission{permission.ManageRoles}, "u0"))
	require.NoError(t, s.AddPermissions(ctx, id, []permission.Permission{permission.ManageRoles, permission.ViewFinance}, "u0"))

	m, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []permission.Permission{permission.ManageRoles, permission.ViewFinance}, m.Permissions)
}

func TestMemberStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := Open().Store().Members

	id, err := s.Insert(ctx, models.NewMember("u1", "s1", permission.RoleTeacher, time.Now()))
	require.NoError(t, err)

	m, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	m.Role = permission.RoleOwner
	m.Permissions = append(m.Permissions, permission.ManageRoles)

	again, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, permission.RoleTeacher, again.Role)
	assert.Empty(t, again.Permissions)
}

func TestClassStore_RosterOps(t *testing.T) {
	ctx := context.Background()
	s := Open().Store().Classes

	id, err := s.Insert(ctx, &models.Class{SchoolID: "s1", Name: "1A"})
	require.NoError(t, err)

	require.NoError(t, s.AddStudent(ctx, id, "st1"))
	require.NoError(t, s.AddStudent(ctx, id, "st1"))
	require.NoError(t, s.AddStudent(ctx, id, "st2"))
	require.NoError(t, s.PullStudent(ctx, id, "st1"))
	require.NoError(t, s.PullStudent(ctx, id, "missing"))

	c, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"st2"}, c.StudentIDs)

	assert.ErrorIs(t, s.AddStudent(ctx, "nope", "st1"), store.ErrNotFound)
}

func TestInjectFault(t *testing.T) {
	ctx := context.Background()
	db := Open()
	s := db.Store().Classes
	boom := errors.New("boom")

	id, err := s.Insert(ctx, &models.Class{SchoolID: "s1", Name: "1A"})
	require.NoError(t, err)

	db.InjectFault(OpClassAddStudent, boom)
	assert.ErrorIs(t, s.AddStudent(ctx, id, "st1"), boom)
	assert.NoError(t, s.PullStudent(ctx, id, "st1"), "faults are per operation")

	db.ClearFaults()
	assert.NoError(t, s.AddStudent(ctx, id, "st1"))
}

func TestStudentStore_FindByClass(t *testing.T) {
	ctx := context.Background()
	s := Open().Store().Students
	c1 := "c1"

	_, err := s.Insert(ctx, &models.Student{SchoolID: "s1", FirstName: "A", CurrentClassID: &c1})
	require.NoError(t, err)
	_, err = s.Insert(ctx, &models.Student{SchoolID: "s1", FirstName: "B"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, &models.Student{SchoolID: "s2", FirstName: "C", CurrentClassID: &c1})
	require.NoError(t, err)

	got, err := s.FindByClass(ctx, "s1", "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].FirstName)
}

func TestSchoolStore_SetStatus(t *testing.T) {
	ctx := context.Background()
	s := Open().Store().Schools

	id, err := s.Insert(ctx, &models.School{Name: "Greenfield", Status: models.SchoolPending})
	require.NoError(t, err)

	require.NoError(t, s.SetStatus(ctx, id, models.SchoolApproved, "root", nil))
	require.NoError(t, s.SetStatus(ctx, id, models.SchoolApproved, "root", nil))

	sc, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SchoolApproved, sc.Status)
	require.NotNil(t, sc.ApprovedBy)
	assert.Equal(t, "root", *sc.ApprovedBy)

	pending, err := s.Find(ctx, store.SchoolFilter{Status: models.SchoolPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

package student

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/roster"
	"github.com/schoolhub/membership/internal/store"
	"github.com/schoolhub/membership/internal/store/memstore"
)

type fixture struct {
	db       *memstore.DB
	st       *store.Store
	svc      *Service
	schoolID string
	c1, c2   string
}

var timeZero = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

var owner = &auth.Identity{UserID: "owner", SystemRole: permission.SystemUser}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := memstore.Open()
	st := db.Store()

	schoolID, err := st.Schools.Insert(ctx, &models.School{Name: "Greenfield", Status: models.SchoolApproved})
	require.NoError(t, err)
	_, err = st.Members.Insert(ctx, models.NewOwner("owner", schoolID, timeZero))
	require.NoError(t, err)

	teacher := models.NewMember("teacher", schoolID, permission.RoleTeacher, timeZero)
	_, err = st.Members.Insert(ctx, teacher)
	require.NoError(t, err)
	director := models.NewMember("director-b1", schoolID, permission.RoleDirector, timeZero)
	b1 := "B1"
	director.BranchID = &b1
	_, err = st.Members.Insert(ctx, director)
	require.NoError(t, err)

	c1, err := st.Classes.Insert(ctx, &models.Class{SchoolID: schoolID, Name: "C1"})
	require.NoError(t, err)
	c2, err := st.Classes.Insert(ctx, &models.Class{SchoolID: schoolID, Name: "C2"})
	require.NoError(t, err)

	gate := auth.NewGate(st.Members)
	svc := NewService(st, gate, roster.NewSynchronizer(st.Classes, nil))
	return &fixture{db: db, st: st, svc: svc, schoolID: schoolID, c1: c1, c2: c2}
}

func (f *fixture) roster(t *testing.T, classID string) []string {
	t.Helper()
	c, err := f.st.Classes.FindByID(context.Background(), classID)
	require.NoError(t, err)
	return c.StudentIDs
}

func TestCreate_AddsToRoster(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Create(context.Background(), owner, f.schoolID, CreateInput{
		FirstName: "Sok", LastName: "Dara", CurrentClassID: &f.c1,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{res.Student.ID}, f.roster(t, f.c1))
}

func TestCreate_RosterFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.db.InjectFault(memstore.OpClassAddStudent, errors.New("timeout"))

	res, err := f.svc.Create(context.Background(), owner, f.schoolID, CreateInput{
		FirstName: "Sok", LastName: "Dara", CurrentClassID: &f.c1,
	})
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 1)

	got, err := f.st.Students.FindByID(context.Background(), res.Student.ID)
	require.NoError(t, err)
	assert.Equal(t, f.c1, models.StringValue(got.CurrentClassID))
	assert.Empty(t, f.roster(t, f.c1))
}

func TestUpdate_MoveBetweenClasses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Create(ctx, owner, f.schoolID, CreateInput{FirstName: "Sok", LastName: "Dara", CurrentClassID: &f.c1})
	require.NoError(t, err)
	id := res.Student.ID

	moved, err := f.svc.Update(ctx, owner, f.schoolID, id, UpdateInput{CurrentClassID: &f.c2})
	require.NoError(t, err)
	assert.Empty(t, moved.Warnings)
	assert.NotContains(t, f.roster(t, f.c1), id)
	assert.Contains(t, f.roster(t, f.c2), id)

	f.db.InjectFault(memstore.OpClassAddStudent, errors.New("timeout"))
	back, err := f.svc.Update(ctx, owner, f.schoolID, id, UpdateInput{CurrentClassID: &f.c1})
	require.NoError(t, err)
	assert.Len(t, back.Warnings, 1)
	assert.NotContains(t, f.roster(t, f.c2), id)
	assert.NotContains(t, f.roster(t, f.c1), id)
	assert.Equal(t, f.c1, models.StringValue(back.Student.CurrentClassID))
}

func TestUpdate_ClearClass(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Create(ctx, owner, f.schoolID, CreateInput{FirstName: "Sok", LastName: "Dara", CurrentClassID: &f.c1})
	require.NoError(t, err)

	cleared, err := f.svc.Update(ctx, owner, f.schoolID, res.Student.ID, UpdateInput{ClearClass: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.Student.CurrentClassID)
	assert.Empty(t, f.roster(t, f.c1))
}

func TestDelete_PullsFromRoster(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Create(ctx, owner, f.schoolID, CreateInput{FirstName: "Sok", LastName: "Dara", CurrentClassID: &f.c1})
	require.NoError(t, err)

	_, err = f.svc.Delete(ctx, owner, f.schoolID, res.Student.ID)
	require.NoError(t, err)
	assert.Empty(t, f.roster(t, f.c1))

	_, err = f.svc.Get(ctx, owner, f.schoolID, res.Student.ID)
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	teacher := &auth.Identity{UserID: "teacher", SystemRole: permission.SystemUser}
	director := &auth.Identity{UserID: "director-b1", SystemRole: permission.SystemUser}
	stranger := &auth.Identity{UserID: "stranger", SystemRole: permission.SystemUser}
	b1, b2 := "B1", "B2"

	_, err := f.svc.Create(ctx, teacher, f.schoolID, CreateInput{FirstName: "A", LastName: "B"})
	assert.ErrorIs(t, err, auth.ErrInsufficientPermissions)

	_, err = f.svc.Create(ctx, stranger, f.schoolID, CreateInput{FirstName: "A", LastName: "B"})
	assert.ErrorIs(t, err, auth.ErrNotAMember)

	_, err = f.svc.Create(ctx, director, f.schoolID, CreateInput{FirstName: "A", LastName: "B", BranchID: &b2})
	assert.ErrorIs(t, err, auth.ErrInsufficientPermissions)

	res, err := f.svc.Create(ctx, director, f.schoolID, CreateInput{FirstName: "A", LastName: "B", BranchID: &b1})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, teacher, f.schoolID, res.Student.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.FirstName)

	unscoped, err := f.svc.Create(ctx, owner, f.schoolID, CreateInput{FirstName: "C", LastName: "D"})
	require.NoError(t, err)
	_, err = f.svc.Delete(ctx, director, f.schoolID, unscoped.Student.ID)
	assert.ErrorIs(t, err, auth.ErrInsufficientPermissions)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	missing := "missing"

	_, err := f.svc.Create(context.Background(), owner, f.schoolID, CreateInput{FirstName: "A"})
	assert.ErrorIs(t, err, ErrInvalidStudent)

	_, err = f.svc.Create(context.Background(), owner, f.schoolID, CreateInput{FirstName: "A", LastName: "B", CurrentClassID: &missing})
	assert.ErrorIs(t, err, ErrInvalidStudent)
}

package roster

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/store"
	"github.com/schoolhub/membership/internal/store/memstore"
)

type recordingEnqueuer struct {
	mu      sync.Mutex
	classes []string
}

func (r *recordingEnqueuer) EnqueueRosterReconcile(_ context.Context, _, classID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes = append(r.classes, classID)
	return nil
}

type env struct {
	db    *memstore.DB
	st    *store.Store
	queue *recordingEnqueuer
	sync  *Synchronizer
	c1    string
	c2    string
}

func setup(t *testing.T) *env {
	t.Helper()
	db := memstore.Open()
	st := db.Store()
	q := &recordingEnqueuer{}
	ctx := context.Background()

	c1, err := st.Classes.Insert(ctx, &models.Class{SchoolID: "s1", Name: "C1"})
	require.NoError(t, err)
	c2, err := st.Classes.Insert(ctx, &models.Class{SchoolID: "s1", Name: "C2"})
	require.NoError(t, err)

	return &env{db: db, st: st, queue: q, sync: NewSynchronizer(st.Classes, q), c1: c1, c2: c2}
}

func (e *env) roster(t *testing.T, classID string) []string {
	t.Helper()
	c, err := e.st.Classes.FindByID(context.Background(), classID)
	require.NoError(t, err)
	return c.StudentIDs
}

func (e *env) student(t *testing.T, classID *string) *models.Student {
	t.Helper()
	st := &models.Student{SchoolID: "s1", FirstName: "Dara", CurrentClassID: classID}
	_, err := e.st.Students.Insert(context.Background(), st)
	require.NoError(t, err)
	return st
}

func TestCreated(t *testing.T) {
	e := setup(t)
	st := e.student(t, &e.c1)

	require.NoError(t, e.sync.Created(context.Background(), st))
	assert.Equal(t, []string{st.ID}, e.roster(t, e.c1))

	unassigned := e.student(t, nil)
	assert.NoError(t, e.sync.Created(context.Background(), unassigned))
}

func TestMoved(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	st := e.student(t, &e.c1)
	require.NoError(t, e.sync.Created(ctx, st))

	from := st.CurrentClassID
	st.CurrentClassID = &e.c2
	require.NoError(t, e.sync.Moved(ctx, st, from))

	assert.NotContains(t, e.roster(t, e.c1), st.ID)
	assert.Contains(t, e.roster(t, e.c2), st.ID)
	assert.Empty(t, e.queue.classes)
}

func TestMoved_FaultOnAddStillPulls(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	st := e.student(t, &e.c1)
	require.NoError(t, e.sync.Created(ctx, st))

	boom := errors.New("write conflict")
	e.db.InjectFault(memstore.OpClassAddStudent, boom)

	from := st.CurrentClassID
	st.CurrentClassID = &e.c2
	err := e.sync.Moved(ctx, st, from)

	var partial *PartialSyncError
	require.ErrorAs(t, err, &partial)
	require.Len(t, partial.Failures, 1)
	assert.Equal(t, StepAdd, partial.Failures[0].Step)
	assert.Equal(t, e.c2, partial.Failures[0].ClassID)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, partial.Warnings(), 1)

	assert.NotContains(t, e.roster(t, e.c1), st.ID)
	assert.NotContains(t, e.roster(t, e.c2), st.ID)
	assert.Equal(t, []string{e.c2}, e.queue.classes)
}

func TestMoved_BothStepsFail(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	st := e.student(t, &e.c1)
	require.NoError(t, e.sync.Created(ctx, st))

	e.db.InjectFault(memstore.OpClassAddStudent, errors.New("add failed"))
	e.db.InjectFault(memstore.OpClassPullStudent, errors.New("pull failed"))

	from := st.CurrentClassID
	st.CurrentClassID = &e.c2
	err := e.sync.Moved(ctx, st, from)

	var partial *PartialSyncError
	require.ErrorAs(t, err, &partial)
	assert.Len(t, partial.Failures, 2)
	assert.ElementsMatch(t, []string{e.c1, e.c2}, e.queue.classes)
}

func TestMoved_SameClassIsNoop(t *testing.T) {
	e := setup(t)
	st := e.student(t, &e.c1)
	e.db.InjectFault(memstore.OpClassAddStudent, errors.New("should not be called"))

	c1 := e.c1
	assert.NoError(t, e.sync.Moved(context.Background(), st, &c1))
}

func TestDeleting(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	st := e.student(t, &e.c1)
	require.NoError(t, e.sync.Created(ctx, st))

	require.NoError(t, e.sync.Deleting(ctx, st))
	assert.Empty(t, e.roster(t, e.c1))
}

func TestReconciler(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	a := e.student(t, &e.c1)
	b := e.student(t, &e.c1)
	e.student(t, nil)

	require.NoError(t, e.st.Classes.SetRoster(ctx, e.c1, []string{a.ID, "ghost"}))
	require.NoError(t, e.st.Classes.SetRoster(ctx, e.c2, []string{b.ID}))

	r := NewReconciler(e.st.Classes, e.st.Students, 2)
	changed, err := r.ReconcileSchool(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	assert.ElementsMatch(t, []string{a.ID, b.ID}, e.roster(t, e.c1))
	assert.Empty(t, e.roster(t, e.c2))

	changed, err = r.ReconcileSchool(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, changed, "a consistent school is left alone")
}

func TestReconcileClass_WrongSchool(t *testing.T) {
	e := setup(t)
	r := NewReconciler(e.st.Classes, e.st.Students, 1)

	_, err := r.ReconcileClass(context.Background(), "other-school", e.c1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

func TestHandlersRegistry_Routes(t *testing.T) {
	var got []string
	r := NewHandlersRegistry()
	r.Register(TypeRosterReconcile, asynq.HandlerFunc(func(_ context.Context, t *asynq.Task) error {
		got = append(got, t.Type())
		return nil
	}))

	err := r.Mux().ProcessTask(context.Background(), asynq.NewTask(TypeRosterReconcile, nil))
	assert.NoError(t, err)
	assert.Equal(t, []string{TypeRosterReconcile}, got)
}

func TestHandlersRegistry_PanicBecomesError(t *testing.T) {
	r := NewHandlersRegistry()
	r.Register(TypeOwnerRepair, asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		panic("boom")
	}))

	err := r.Mux().ProcessTask(context.Background(), asynq.NewTask(TypeOwnerRepair, nil))
	assert.ErrorContains(t, err, "panicked")
}

func TestHandlersRegistry_PassesErrorsThrough(t *testing.T) {
	want := errors.New("store down")
	r := NewHandlersRegistry()
	r.Register(TypeOwnerRepairScan, asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		return want
	}))

	err := r.Mux().ProcessTask(context.Background(), asynq.NewTask(TypeOwnerRepairScan, nil))
	assert.ErrorIs(t, err, want)
}

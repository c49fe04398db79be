// Package roster keeps Class.StudentIDs in step with Student.CurrentClassID.
//
// The student's own class id is authoritative. The class roster is a cache
// that is patched best-effort on every student mutation and rebuilt by the
// Reconciler when a patch fails.
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schoolhub/membership/internal/metrics"
	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/store"
)

const (
	StepAdd  = "add"
	StepPull = "pull"
)

// Enqueuer schedules a background rebuild of one class roster.
type Enqueuer interface {
	EnqueueRosterReconcile(ctx context.Context, schoolID, classID string) error
}

type StepFailure struct {
	Step    string
	ClassID string
	Err     error
}

// PartialSyncError reports roster steps that failed after the student write
// itself succeeded. It is a warning, never a reason to fail the caller.
type PartialSyncError struct {
	StudentID string
	Failures  []StepFailure
}

func (e *PartialSyncError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s class %s: %v", f.Step, f.ClassID, f.Err))
	}
	return fmt.Sprintf("roster sync for student %s incomplete: %s", e.StudentID, strings.Join(parts, "; "))
}

func (e *PartialSyncError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Warnings renders one client-facing line per failed step.
func (e *PartialSyncError) Warnings() []string {
	out := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, fmt.Sprintf("class %s roster %s pending reconciliation", f.ClassID, f.Step))
	}
	return out
}

type Synchronizer struct {
	classes  store.ClassStore
	enqueuer Enqueuer
}

// NewSynchronizer builds a Synchronizer. enqueuer may be nil.
func NewSynchronizer(classes store.ClassStore, enqueuer Enqueuer) *Synchronizer {
	return &Synchronizer{classes: classes, enqueuer: enqueuer}
}

// Created adds a new student to its class roster.
func (s *Synchronizer) Created(ctx context.Context, st *models.Student) error {
	if st.CurrentClassID == nil {
		return nil
	}
	run := s.newRun(st)
	run.add(ctx, *st.CurrentClassID)
	return run.result()
}

// Moved patches both rosters after a class change. The pull and the add are
// independent; one failing does not stop or undo the other.
func (s *Synchronizer) Moved(ctx context.Context, st *models.Student, from *string) error {
	to := st.CurrentClassID
	if models.StringValue(from) == models.StringValue(to) {
		return nil
	}
	run := s.newRun(st)
	if from != nil {
		run.pull(ctx, *from)
	}
	if to != nil {
		run.add(ctx, *to)
	}
	return run.result()
}

// Deleting pulls the student from its roster. Call it before the student
// document is removed.
func (s *Synchronizer) Deleting(ctx context.Context, st *models.Student) error {
	if st.CurrentClassID == nil {
		return nil
	}
	run := s.newRun(st)
	run.pull(ctx, *st.CurrentClassID)
	return run.result()
}

type syncRun struct {
	s       *Synchronizer
	student *models.Student
	failed  []StepFailure
}

func (s *Synchronizer) newRun(st *models.Student) *syncRun {
	return &syncRun{s: s, student: st}
}

func (r *syncRun) add(ctx context.Context, classID string) {
	r.step(ctx, StepAdd, classID, r.s.classes.AddStudent(ctx, classID, r.student.ID))
}

func (r *syncRun) pull(ctx context.Context, classID string) {
	r.step(ctx, StepPull, classID, r.s.classes.PullStudent(ctx, classID, r.student.ID))
}

func (r *syncRun) step(ctx context.Context, step, classID string, err error) {
	if err == nil {
		return
	}
	metrics.RecordSyncFailure(step)
	slog.Error("roster sync step failed",
		"step", step,
		"school_id", r.student.SchoolID,
		"class_id", classID,
		"student_id", r.student.ID,
		"error", err,
	)
	r.failed = append(r.failed, StepFailure{Step: step, ClassID: classID, Err: err})

	if r.s.enqueuer == nil {
		return
	}
	if qerr := r.s.enqueuer.EnqueueRosterReconcile(ctx, r.student.SchoolID, classID); qerr != nil {
		slog.Error("enqueue roster reconcile", "school_id", r.student.SchoolID, "class_id", classID, "error", qerr)
	}
}

func (r *syncRun) result() error {
	if len(r.failed) == 0 {
		return nil
	}
	return &PartialSyncError{StudentID: r.student.ID, Failures: r.failed}
}

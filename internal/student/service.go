// Package student owns the Student document and drives roster
// synchronization on every change of CurrentClassID.
package student

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/roster"
	"github.com/schoolhub/membership/internal/store"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrInvalidStudent  = errors.New("invalid student")
)

// Result carries the student plus any roster warnings. Warnings never mean
// the student write failed.
type Result struct {
	Student  *models.Student `json:"student"`
	Warnings []string        `json:"warnings,omitempty"`
}

type Service struct {
	students store.StudentStore
	classes  store.ClassStore
	gate     *auth.Gate
	sync     *roster.Synchronizer
	now      func() time.Time
}

func NewService(st *store.Store, gate *auth.Gate, sync *roster.Synchronizer) *Service {
	return &Service{
		students: st.Students,
		classes:  st.Classes,
		gate:     gate,
		sync:     sync,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CreateInput struct {
	BranchID       *string
	StudentCode    string
	FirstName      string
	LastName       string
	GradeLevel     string
	CurrentClassID *string
}

func (s *Service) Create(ctx context.Context, id *auth.Identity, schoolID string, in CreateInput) (*Result, error) {
	if in.FirstName == "" || in.LastName == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrInvalidStudent)
	}
	caller, err := s.gate.RequirePermission(ctx, id, schoolID, permission.CreateStudents)
	if err != nil {
		return nil, err
	}
	if !permission.CanManageBranch(caller.Role, caller.BranchID, in.BranchID) {
		return nil, auth.ErrInsufficientPermissions
	}
	if err := s.checkClass(ctx, schoolID, in.CurrentClassID); err != nil {
		return nil, err
	}

	st := &models.Student{
		SchoolID:       schoolID,
		BranchID:       in.BranchID,
		StudentCode:    in.StudentCode,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		GradeLevel:     in.GradeLevel,
		CurrentClassID: in.CurrentClassID,
		Status:         "Active",
		Audit:          models.NewAudit(id.UserID, s.now()),
	}
	if _, err := s.students.Insert(ctx, st); err != nil {
		return nil, fmt.Errorf("insert student: %w", err)
	}
	slog.Info("student created", "school_id", schoolID, "student_id", st.ID)

	return withWarnings(st, s.sync.Created(ctx, st)), nil
}

// UpdateInput is a partial update. ClearClass unassigns the student.
type UpdateInput struct {
	FirstName      *string
	LastName       *string
	GradeLevel     *string
	Status         *string
	CurrentClassID *string
	ClearClass     bool
}

func (s *Service) Update(ctx context.Context, id *auth.Identity, schoolID, studentID string, in UpdateInput) (*Result, error) {
	st, err := s.authorize(ctx, id, schoolID, studentID, permission.UpdateStudents)
	if err != nil {
		return nil, err
	}

	prev := st.CurrentClassID
	if in.FirstName != nil {
		st.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		st.LastName = *in.LastName
	}
	if in.GradeLevel != nil {
		st.GradeLevel = *in.GradeLevel
	}
	if in.Status != nil {
		st.Status = *in.Status
	}
	switch {
	case in.ClearClass:
		st.CurrentClassID = nil
	case in.CurrentClassID != nil:
		if err := s.checkClass(ctx, schoolID, in.CurrentClassID); err != nil {
			return nil, err
		}
		st.CurrentClassID = in.CurrentClassID
	}
	st.UpdatedAt = s.now()
	st.UpdatedBy = id.UserID

	if err := s.students.Update(ctx, st); err != nil {
		return nil, fmt.Errorf("update student: %w", err)
	}
	return withWarnings(st, s.sync.Moved(ctx, st, prev)), nil
}

// Delete pulls the student from its roster first, then removes the document.
func (s *Service) Delete(ctx context.Context, id *auth.Identity, schoolID, studentID string) (*Result, error) {
	st, err := s.authorize(ctx, id, schoolID, studentID, permission.DeleteStudents)
	if err != nil {
		return nil, err
	}
	syncErr := s.sync.Deleting(ctx, st)
	if err := s.students.Delete(ctx, st.ID); err != nil {
		return nil, fmt.Errorf("delete student: %w", err)
	}
	slog.Info("student deleted", "school_id", schoolID, "student_id", st.ID, "by", id.UserID)
	return withWarnings(st, syncErr), nil
}

func (s *Service) Get(ctx context.Context, id *auth.Identity, schoolID, studentID string) (*models.Student, error) {
	if _, err := s.gate.RequirePermission(ctx, id, schoolID, permission.ViewStudents); err != nil {
		return nil, err
	}
	return s.load(ctx, schoolID, studentID)
}

func (s *Service) authorize(ctx context.Context, id *auth.Identity, schoolID, studentID string, p permission.Permission) (*models.Student, error) {
	caller, err := s.gate.RequirePermission(ctx, id, schoolID, p)
	if err != nil {
		return nil, err
	}
	st, err := s.load(ctx, schoolID, studentID)
	if err != nil {
		return nil, err
	}
	if !permission.CanManageBranch(caller.Role, caller.BranchID, st.BranchID) {
		return nil, auth.ErrInsufficientPermissions
	}
	return st, nil
}

func (s *Service) load(ctx context.Context, schoolID, studentID string) (*models.Student, error) {
	st, err := s.students.FindByID(ctx, studentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if st.SchoolID != schoolID {
		return nil, ErrStudentNotFound
	}
	return st, nil
}

func (s *Service) checkClass(ctx context.Context, schoolID string, classID *string) error {
	if classID == nil {
		return nil
	}
	c, err := s.classes.FindByID(ctx, *classID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && c.SchoolID != schoolID) {
		return fmt.Errorf("%w: class %s does not exist in this school", ErrInvalidStudent, *classID)
	}
	if err != nil {
		return fmt.Errorf("load class: %w", err)
	}
	return nil
}

func withWarnings(st *models.Student, syncErr error) *Result {
	res := &Result{Student: st}
	var partial *roster.PartialSyncError
	if errors.As(syncErr, &partial) {
		res.Warnings = partial.Warnings()
	}
	return res
}

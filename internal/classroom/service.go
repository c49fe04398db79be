package classroom

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
	ErrClassNotFound = errors.New("class not found")
	ErrInvalidClass  = errors.New("invalid class")
)

type Service struct {
	classes    store.ClassStore
	students   store.StudentStore
	gate       *auth.Gate
	reconciler *roster.Reconciler
	now        func() time.Time
}

func NewService(st *store.Store, gate *auth.Gate, reconciler *roster.Reconciler) *Service {
	return &Service{
		classes:    st.Classes,
		students:   st.Students,
		gate:       gate,
		reconciler: reconciler,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type CreateInput struct {
	BranchID          *string
	AcademicYearID    string
	Name              string
	Code              string
	GradeLevel        string
	HomeroomTeacherID *string
}

func (s *Service) Create(ctx context.Context, id *auth.Identity, schoolID string, in CreateInput) (*models.Class, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidClass)
	}
	caller, err := s.gate.RequirePermission(ctx, id, schoolID, permission.ManageClasses)
	if err != nil {
		return nil, err
	}
	if !permission.CanManageBranch(caller.Role, caller.BranchID, in.BranchID) {
		return nil, auth.ErrInsufficientPermissions
	}

	c := &models.Class{
		SchoolID:          schoolID,
		BranchID:          in.BranchID,
		AcademicYearID:    in.AcademicYearID,
		Name:              in.Name,
		Code:              in.Code,
		GradeLevel:        in.GradeLevel,
		HomeroomTeacherID: in.HomeroomTeacherID,
		StudentIDs:        []string{},
		Audit:             models.NewAudit(id.UserID, s.now()),
	}
	if _, err := s.classes.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("insert class: %w", err)
	}
	slog.Info("class created", "school_id", schoolID, "class_id", c.ID)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id *auth.Identity, schoolID, classID string) (*models.Class, error) {
	if _, err := s.gate.RequirePermission(ctx, id, schoolID, permission.ViewClasses); err != nil {
		return nil, err
	}
	return s.load(ctx, schoolID, classID)
}

func (s *Service) List(ctx context.Context, id *auth.Identity, schoolID string) ([]models.Class, error) {
	if _, err := s.gate.RequirePermission(ctx, id, schoolID, permission.ViewClasses); err != nil {
		return nil, err
	}
	return s.classes.FindBySchool(ctx, schoolID)
}

// Roster answers from Student.CurrentClassID, not from the cached
// Class.StudentIDs.
func (s *Service) Roster(ctx context.Context, id *auth.Identity, schoolID, classID string) ([]models.Student, error) {
	if _, err := s.gate.RequirePermission(ctx, id, schoolID, permission.ViewStudents); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, schoolID, classID); err != nil {
		return nil, err
	}
	students, err := s.students.FindByClass(ctx, schoolID, classID)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// Reconcile rebuilds one roster, or every roster of the school when classID
// is empty. It returns the number of rosters rewritten.
func (s *Service) Reconcile(ctx context.Context, id *auth.Identity, schoolID, classID string) (int, error) {
	if _, err := s.gate.RequirePermission(ctx, id, schoolID, permission.ManageClasses); err != nil {
		return 0, err
	}
	if classID == "" {
		return s.reconciler.ReconcileSchool(ctx, schoolID)
	}
	if _, err := s.load(ctx, schoolID, classID); err != nil {
		return 0, err
	}
	changed, err := s.reconciler.ReconcileClass(ctx, schoolID, classID)
	if err != nil || !changed {
		return 0, err
	}
	return 1, nil
}

func (s *Service) load(ctx context.Context, schoolID, classID string) (*models.Class, error) {
	c, err := s.classes.FindByID(ctx, classID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load class: %w", err)
	}
	if c.SchoolID != schoolID {
		return nil, ErrClassNotFound
	}
	return c, nil
}

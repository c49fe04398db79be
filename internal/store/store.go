// Package store defines the per-collection document store contract. Every
// operation is atomic on a single document; there is no cross-collection
// transaction.
package store

import (
	"context"
	"errors"

	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
)

type MemberFilter struct {
	SchoolID string
	UserID   string
	Role     permission.SchoolRole
	// ActiveOnly keeps only effectively active members.
	ActiveOnly bool
	// IncludeDeleted returns soft-deleted members as well.
	IncludeDeleted bool
}

type MemberStore interface {
	Insert(ctx context.Context, m *models.Member) (string, error)
	FindByID(ctx context.Context, id string) (*models.Member, error)
	// FindByUserAndSchool returns the non-deleted member for the pair.
	FindByUserAndSchool(ctx context.Context, userID, schoolID string) (*models.Member, error)
	Find(ctx context.Context, f MemberFilter) ([]models.Member, error)
	Count(ctx context.Context, f MemberFilter) (int64, error)
	UpdateRole(ctx context.Context, id string, role permission.SchoolRole, by string) error
	UpdateStatus(ctx context.Context, id string, status models.MemberStatus, by string) error
	AddPermissions(ctx context.Context, id string, perms []permission.Permission, by string) error
	SoftDelete(ctx context.Context, id string, by string) error
}

type SchoolFilter struct {
	Status models.SchoolStatus
	IDs    []string
}

type SchoolStore interface {
	Insert(ctx context.Context, s *models.School) (string, error)
	FindByID(ctx context.Context, id string) (*models.School, error)
	Find(ctx context.Context, f SchoolFilter) ([]models.School, error)
	// SetStatus overwrites status and its approval metadata. Re-applying the
	// same status is not an error.
	SetStatus(ctx context.Context, id string, status models.SchoolStatus, by string, reason *string) error
}

type UserStore interface {
	Insert(ctx context.Context, u *models.User) (string, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
	TouchLogin(ctx context.Context, id string) error
}

type StudentStore interface {
	Insert(ctx context.Context, s *models.Student) (string, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	// FindByClass is the authoritative roster query.
	FindByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error)
	Update(ctx context.Context, s *models.Student) error
	Delete(ctx context.Context, id string) error
}

type ClassStore interface {
	Insert(ctx context.Context, c *models.Class) (string, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindBySchool(ctx context.Context, schoolID string) ([]models.Class, error)
	// AddStudent is an $addToSet on the roster.
	AddStudent(ctx context.Context, classID, studentID string) error
	// PullStudent is a $pull on the roster.
	PullStudent(ctx context.Context, classID, studentID string) error
	SetRoster(ctx context.Context, classID string, studentIDs []string) error
}

// Store groups the collections used by the services.
type Store struct {
	Members  MemberStore
	Schools  SchoolStore
	Users    UserStore
	Students StudentStore
	Classes  ClassStore
}

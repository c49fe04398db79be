// Package tenant registers schools and keeps every school owned.
//
// Registration writes the School and then its Owner member as two separate
// single-document writes. When the second write fails the school is left
// ownerless; RegisterSchool reports ErrTenantConsistencyRisk and schedules a
// repair, and a retry with the same idempotency key repairs inline.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/schoolhub/membership/internal/audit"
	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/metrics"
	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/store"
)

var (
	ErrSchoolNotFound = errors.New("school not found")
	// ErrTenantConsistencyRisk means the school exists but its Owner member
	// could not be written.
	ErrTenantConsistencyRisk = errors.New("school created without an owner")
	ErrIdempotencyConflict   = errors.New("registration with this idempotency key is in progress")
	ErrInvalidSchool         = errors.New("invalid school")
)

// IdempotencyStore remembers which school a registration key produced.
type IdempotencyStore interface {
	// Claim reserves key. When the key is already claimed it returns the
	// recorded school id, or "" while the first registration is in flight.
	Claim(ctx context.Context, key string) (schoolID string, claimed bool, err error)
	Complete(ctx context.Context, key, schoolID string) error
	Release(ctx context.Context, key string) error
}

// RepairScheduler queues an ownerless-school repair.
type RepairScheduler interface {
	EnqueueOwnerRepair(ctx context.Context, schoolID string) error
}

type Draft struct {
	Name            string
	NameKm          *string
	SchoolType      string
	EducationLevels []string
	Description     *string
	Address         *string
	Phone           *string
	Email           *string
	Website         *string
}

type Service struct {
	store   *store.Store
	gate    *auth.Gate
	idem    IdempotencyStore
	repairs RepairScheduler
	audit   audit.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithIdempotency(idem IdempotencyStore) Option {
	return func(s *Service) { s.idem = idem }
}

func WithRepairScheduler(r RepairScheduler) Option {
	return func(s *Service) { s.repairs = r }
}

func WithAudit(l audit.Logger) Option {
	return func(s *Service) { s.audit = l }
}

func NewService(st *store.Store, gate *auth.Gate, opts ...Option) *Service {
	s := &Service{
		store: st,
		gate:  gate,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterSchool creates a Pending school and its primary-contact Owner.
// idempotencyKey is optional.
func (s *Service) RegisterSchool(ctx context.Context, id *auth.Identity, draft Draft, idempotencyKey string) (*models.School, error) {
	if id == nil {
		return nil, auth.ErrAuthenticationRequired
	}
	if draft.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidSchool)
	}

	var key string
	if idempotencyKey != "" && s.idem != nil {
		key = "bootstrap:" + id.UserID + ":" + idempotencyKey
		schoolID, claimed, err := s.idem.Claim(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("claim idempotency key: %w", err)
		}
		if !claimed {
			if schoolID == "" {
				return nil, ErrIdempotencyConflict
			}
			return s.replay(ctx, schoolID)
		}
	}

	now := s.now()
	school := &models.School{
		Name:            draft.Name,
		NameKm:          draft.NameKm,
		SchoolType:      draft.SchoolType,
		EducationLevels: draft.EducationLevels,
		Description:     draft.Description,
		Address:         draft.Address,
		Phone:           draft.Phone,
		Email:           draft.Email,
		Website:         draft.Website,
		Status:          models.SchoolPending,
		Features:        models.StarterFeatures(),
		Audit:           models.NewAudit(id.UserID, now),
	}
	if school.EducationLevels == nil {
		school.EducationLevels = []string{}
	}

	if _, err := s.store.Schools.Insert(ctx, school); err != nil {
		if key != "" {
			if rerr := s.idem.Release(ctx, key); rerr != nil {
				slog.Warn("release idempotency key", "key", key, "error", rerr)
			}
		}
		return nil, fmt.Errorf("insert school: %w", err)
	}
	if key != "" {
		if err := s.idem.Complete(ctx, key, school.ID); err != nil {
			slog.Warn("complete idempotency key", "key", key, "school_id", school.ID, "error", err)
		}
	}

	owner := models.NewOwner(id.UserID, school.ID, now)
	if _, err := s.store.Members.Insert(ctx, owner); err != nil {
		if !errors.Is(err, store.ErrDuplicate) || !s.hasOwner(ctx, school.ID) {
			return nil, s.ownerWriteFailed(ctx, school, err)
		}
		// A concurrent repair already created the Owner.
		slog.Info("owner already present", "school_id", school.ID, "user_id", id.UserID)
	}

	slog.Info("school registered", "school_id", school.ID, "owner_id", id.UserID)
	audit.Record(ctx, s.audit, audit.Entry{
		SchoolID:     school.ID,
		ActorID:      id.UserID,
		Action:       audit.ActionSchoolRegistered,
		ResourceType: "school",
		ResourceID:   school.ID,
		Details:      map[string]interface{}{"name": school.Name, "owner_member_id": owner.ID},
	})
	return school, nil
}

func (s *Service) ownerWriteFailed(ctx context.Context, school *models.School, cause error) error {
	metrics.BootstrapFailures.Inc()
	err := fmt.Errorf("%w: school %s: %v", ErrTenantConsistencyRisk, school.ID, cause)
	slog.Error("owner member insert failed", "school_id", school.ID, "user_id", school.CreatedBy, "error", cause)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("school_id", school.ID)
		sentry.CaptureException(err)
	})
	if s.repairs != nil {
		if qerr := s.repairs.EnqueueOwnerRepair(ctx, school.ID); qerr != nil {
			slog.Error("enqueue owner repair", "school_id", school.ID, "error", qerr)
		}
	}
	return err
}

func (s *Service) hasOwner(ctx context.Context, schoolID string) bool {
	n, err := s.store.Members.Count(ctx, store.MemberFilter{SchoolID: schoolID, Role: permission.RoleOwner})
	if err != nil {
		slog.Warn("count owners", "school_id", schoolID, "error", err)
		return false
	}
	return n > 0
}

// replay returns the school an earlier registration produced, repairing its
// owner if that write had failed.
func (s *Service) replay(ctx context.Context, schoolID string) (*models.School, error) {
	school, err := s.loadSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if _, err := s.RepairOwnerless(ctx, schoolID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTenantConsistencyRisk, err)
	}
	return school, nil
}

// Approve moves a school to Approved. Re-approving overwrites the
// approval metadata and is not an error.
func (s *Service) Approve(ctx context.Context, schoolID string) (*models.School, error) {
	return s.transition(ctx, schoolID, models.SchoolApproved, nil, audit.ActionSchoolApproved)
}

func (s *Service) Reject(ctx context.Context, schoolID string, reason *string) (*models.School, error) {
	return s.transition(ctx, schoolID, models.SchoolRejected, reason, audit.ActionSchoolRejected)
}

func (s *Service) transition(ctx context.Context, schoolID string, status models.SchoolStatus, reason *string, action string) (*models.School, error) {
	id, err := auth.RequireRole(ctx, permission.SystemSuperAdmin)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadSchool(ctx, schoolID); err != nil {
		return nil, err
	}
	if err := s.store.Schools.SetStatus(ctx, schoolID, status, id.UserID, reason); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSchoolNotFound
		}
		return nil, fmt.Errorf("set school status: %w", err)
	}

	slog.Info("school status changed", "school_id", schoolID, "status", status, "by", id.UserID)
	details := map[string]interface{}{"status": status}
	if reason != nil {
		details["reason"] = *reason
	}
	audit.Record(ctx, s.audit, audit.Entry{
		SchoolID:     schoolID,
		ActorID:      id.UserID,
		Action:       action,
		ResourceType: "school",
		ResourceID:   schoolID,
		Details:      details,
	})
	return s.loadSchool(ctx, schoolID)
}

func (s *Service) PendingSchools(ctx context.Context) ([]models.School, error) {
	return s.SchoolsByStatus(ctx, models.SchoolPending)
}

func (s *Service) SchoolsByStatus(ctx context.Context, status models.SchoolStatus) ([]models.School, error) {
	if _, err := auth.RequireRole(ctx, permission.SystemSuperAdmin); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidSchool, status)
	}
	return s.store.Schools.Find(ctx, store.SchoolFilter{Status: status})
}

// MySchools lists schools where the caller is an effectively active member.
func (s *Service) MySchools(ctx context.Context, id *auth.Identity) ([]models.School, error) {
	if id == nil {
		return nil, auth.ErrAuthenticationRequired
	}
	members, err := s.store.Members.Find(ctx, store.MemberFilter{UserID: id.UserID, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("find memberships: %w", err)
	}
	if len(members) == 0 {
		return []models.School{}, nil
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.SchoolID)
	}
	return s.store.Schools.Find(ctx, store.SchoolFilter{IDs: ids})
}

// GetSchool is open to members of the school and to SuperAdmins.
func (s *Service) GetSchool(ctx context.Context, id *auth.Identity, schoolID string) (*models.School, error) {
	if id == nil {
		return nil, auth.ErrAuthenticationRequired
	}
	if id.SystemRole != permission.SystemSuperAdmin {
		if _, err := s.gate.RequireMember(ctx, id, schoolID); err != nil {
			return nil, err
		}
	}
	return s.loadSchool(ctx, schoolID)
}

func (s *Service) loadSchool(ctx context.Context, schoolID string) (*models.School, error) {
	school, err := s.store.Schools.FindByID(ctx, schoolID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSchoolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load school: %w", err)
	}
	return school, nil
}

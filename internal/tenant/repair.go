package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/schoolhub/membership/internal/audit"
	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/metrics"
	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/store"
)

// RepairOwnerless gives schoolID back an Owner when it has none. The
// registering user (created_by) becomes Owner again: an existing membership
// is promoted, otherwise a primary-contact Owner is inserted. It reports
// whether anything was written.
func (s *Service) RepairOwnerless(ctx context.Context, schoolID string) (bool, error) {
	school, err := s.loadSchool(ctx, schoolID)
	if err != nil {
		return false, err
	}

	owners, err := s.store.Members.Count(ctx, store.MemberFilter{SchoolID: schoolID, Role: permission.RoleOwner})
	if err != nil {
		return false, fmt.Errorf("count owners: %w", err)
	}
	if owners > 0 {
		return false, nil
	}
	if school.CreatedBy == "" {
		return false, fmt.Errorf("school %s has no owner and no creator", schoolID)
	}

	existing, err := s.store.Members.FindByUserAndSchool(ctx, school.CreatedBy, schoolID)
	switch {
	case err == nil:
		if err := s.store.Members.UpdateRole(ctx, existing.ID, permission.RoleOwner, school.CreatedBy); err != nil {
			return false, fmt.Errorf("promote creator: %w", err)
		}
		if existing.Status != models.MemberActive {
			if err := s.store.Members.UpdateStatus(ctx, existing.ID, models.MemberActive, school.CreatedBy); err != nil {
				return false, fmt.Errorf("activate creator: %w", err)
			}
		}
	case errors.Is(err, store.ErrNotFound):
		owner := models.NewOwner(school.CreatedBy, schoolID, s.now())
		if _, err := s.store.Members.Insert(ctx, owner); err != nil {
			return false, fmt.Errorf("insert owner: %w", err)
		}
	default:
		return false, fmt.Errorf("load creator membership: %w", err)
	}

	metrics.OwnersRepaired.Inc()
	slog.Warn("repaired ownerless school", "school_id", schoolID, "owner_id", school.CreatedBy)
	audit.Record(ctx, s.audit, audit.Entry{
		SchoolID:     schoolID,
		ActorID:      school.CreatedBy,
		Action:       audit.ActionOwnerRepaired,
		ResourceType: "school",
		ResourceID:   schoolID,
	})
	return true, nil
}

// RequestRepair is the SuperAdmin entry point for RepairOwnerless.
func (s *Service) RequestRepair(ctx context.Context, schoolID string) (bool, error) {
	if _, err := auth.RequireRole(ctx, permission.SystemSuperAdmin); err != nil {
		return false, err
	}
	return s.RepairOwnerless(ctx, schoolID)
}

// RepairAll scans every school and repairs the ownerless ones. Failures on
// one school do not stop the scan; the first error is returned.
func (s *Service) RepairAll(ctx context.Context) (int, error) {
	schools, err := s.store.Schools.Find(ctx, store.SchoolFilter{})
	if err != nil {
		return 0, fmt.Errorf("list schools: %w", err)
	}
	var (
		repaired int
		firstErr error
	)
	for _, sc := range schools {
		ok, err := s.RepairOwnerless(ctx, sc.ID)
		if err != nil {
			slog.Error("owner repair failed", "school_id", sc.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			repaired++
		}
	}
	return repaired, firstErr
}

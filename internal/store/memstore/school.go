package memstore

import (
	"context"

	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/store"
)

type SchoolStore struct {
	db *DB
}

func cloneSchool(s models.School) models.School {
	s.EducationLevels = cloneStrings(s.EducationLevels)
	s.Features = append([]models.SchoolFeature(nil), s.Features...)
	return s
}

func (s *SchoolStore) Insert(ctx context.Context, sc *models.School) (string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fault(OpSchoolInsert); err != nil {
		return "", err
	}
	sc.ID = s.db.newID("schools")
	s.db.schools[sc.ID] = cloneSchool(*sc)
	return sc.ID, nil
}

func (s *SchoolStore) FindByID(ctx context.Context, id string) (*models.School, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	sc, ok := s.db.schools[id]
	if !ok || sc.IsDeleted {
		return nil, store.ErrNotFound
	}
	out := cloneSchool(sc)
	return &out, nil
}

func (s *SchoolStore) Find(ctx context.Context, f store.SchoolFilter) ([]models.School, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var ids map[string]bool
	if f.IDs != nil {
		ids = make(map[string]bool, len(f.IDs))
		for _, id := range f.IDs {
			ids[id] = true
		}
	}
	var out []models.School
	for _, id := range s.db.order["schools"] {
		sc := s.db.schools[id]
		if sc.IsDeleted {
			continue
		}
		if f.Status != "" && sc.Status != f.Status {
			continue
		}
		if ids != nil && !ids[id] {
			continue
		}
		out = append(out, cloneSchool(sc))
	}
	return out, nil
}

func (s *SchoolStore) SetStatus(ctx context.Context, id string, status models.SchoolStatus, by string, reason *string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fault(OpSchoolUpdate); err != nil {
		return err
	}
	sc, ok := s.db.schools[id]
	if !ok {
		return store.ErrNotFound
	}
	now := s.db.now()
	sc.Status = status
	switch status {
	case models.SchoolApproved:
		sc.ApprovedBy = &by
		sc.ApprovedAt = &now
	case models.SchoolRejected:
		sc.RejectionReason = reason
	}
	sc.UpdatedAt = now
	sc.UpdatedBy = by
	s.db.schools[id] = sc
	return nil
}

package memstore

import (
	"context"
	"fmt"

	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/store"
)

type MemberStore struct {
	db *DB
}

func cloneMember(m models.Member) models.Member {
	m.Permissions = append([]permission.Permission(nil), m.Permissions...)
	m.ParentOf = cloneStrings(m.ParentOf)
	return m
}

func (s *MemberStore) Insert(ctx context.Context, m *models.Member) (string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fault(OpMemberInsert); err != nil {
		return "", err
	}
	for _, existing := range s.db.members {
		if existing.UserID == m.UserID && existing.SchoolID == m.SchoolID && !existing.IsDeleted {
			return "", fmt.Errorf("member (%s, %s): %w", m.UserID, m.SchoolID, store.ErrDuplicate)
		}
	}
	m.ID = s.db.newID("members")
	s.db.members[m.ID] = cloneMember(*m)
	return m.ID, nil
}

func (s *MemberStore) FindByID(ctx context.Context, id string) (*models.Member, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	m, ok := s.db.members[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneMember(m)
	return &out, nil
}

func (s *MemberStore) FindByUserAndSchool(ctx context.Context, userID, schoolID string) (*models.Member, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, id := range s.db.order["members"] {
		m := s.db.members[id]
		if m.UserID == userID && m.SchoolID == schoolID && !m.IsDeleted {
			out := cloneMember(m)
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func matchMember(m models.Member, f store.MemberFilter) bool {
	if f.SchoolID != "" && m.SchoolID != f.SchoolID {
		return false
	}
	if f.UserID != "" && m.UserID != f.UserID {
		return false
	}
	if f.Role != "" && m.Role != f.Role {
		return false
	}
	if f.ActiveOnly && !m.IsEffectivelyActive() {
		return false
	}
	if !f.IncludeDeleted && m.IsDeleted {
		return false
	}
	return true
}

func (s *MemberStore) Find(ctx context.Context, f store.MemberFilter) ([]models.Member, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []models.Member
	for _, id := range s.db.order["members"] {
		if m := s.db.members[id]; matchMember(m, f) {
			out = append(out, cloneMember(m))
		}
	}
	return out, nil
}

func (s *MemberStore) Count(ctx context.Context, f store.MemberFilter) (int64, error) {
	members, err := s.Find(ctx, f)
	return int64(len(members)), err
}

func (s *MemberStore) update(id string, fn func(m *models.Member)) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fault(OpMemberUpdate); err != nil {
		return err
	}
	m, ok := s.db.members[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&m)
	m.UpdatedAt = s.db.now()
	s.db.members[id] = m
	return nil
}

func (s *MemberStore) UpdateRole(ctx context.Context, id string, role permission.SchoolRole, by string) error {
	return s.update(id, func(m *models.Member) {
		m.Role = role
		m.UpdatedBy = by
	})
}

func (s *MemberStore) UpdateStatus(ctx context.Context, id string, status models.MemberStatus, by string) error {
	return s.update(id, func(m *models.Member) {
		m.Status = status
		m.UpdatedBy = by
	})
}

func (s *MemberStore) AddPermissions(ctx context.Context, id string, perms []permission.Permission, by string) error {
	return s.update(id, func(m *models.Member) {
		for _, p := range perms {
			found := false
			for _, have := range m.Permissions {
				if have == p {
					found = true
					break
				}
			}
			if !found {
				m.Permissions = append(m.Permissions, p)
			}
		}
		m.UpdatedBy = by
	})
}

func (s *MemberStore) SoftDelete(ctx context.Context, id string, by string) error {
	return s.update(id, func(m *models.Member) {
		now := s.db.now()
		m.Status = models.MemberInactive
		m.IsDeleted = true
		m.DeletedAt = &now
		m.DeletedBy = by
		m.UpdatedBy = by
	})
}

package memstore

import (
	"context"

	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/store"
)

type UserStore struct {
	db *DB
}

func (s *UserStore) Insert(ctx context.Context, u *models.User) (string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fault(OpUserInsert); err != nil {
		return "", err
	}
	for _, existing := range s.db.users {
		if existing.ExternalID == u.ExternalID {
			return "", store.ErrDuplicate
		}
	}
	u.ID = s.db.newID("users")
	s.db.users[u.ID] = *u
	return u.ID, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *UserStore) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, u := range s.db.users {
		if u.ExternalID == externalID {
			out := u
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *UserStore) Count(ctx context.Context) (int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return int64(len(s.db.users)), nil
}

func (s *UserStore) TouchLogin(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return store.ErrNotFound
	}
	now := s.db.now()
	u.LastLogin = &now
	u.UpdatedAt = now
	s.db.users[id] = u
	return nil
}

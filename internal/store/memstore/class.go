package memstore

import (
	"context"

	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/store"
)

type ClassStore struct {
	db *DB
}

func cloneClass(c models.Class) models.Class {
	c.StudentIDs = cloneStrings(c.StudentIDs)
	return c
}

func (s *ClassStore) Insert(ctx context.Context, c *models.Class) (string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fault(OpClassInsert); err != nil {
		return "", err
	}
	if c.StudentIDs == nil {
		c.StudentIDs = []string{}
	}
	c.ID = s.db.newID("classes")
	s.db.classes[c.ID] = cloneClass(*c)
	return c.ID, nil
}

func (s *ClassStore) FindByID(ctx context.Context, id string) (*models.Class, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	c, ok := s.db.classes[id]
	if !ok || c.IsDeleted {
		return nil, store.ErrNotFound
	}
	out := cloneClass(c)
	return &out, nil
}

func (s *ClassStore) FindBySchool(ctx context.Context, schoolID string) ([]models.Class, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []models.Class
	for _, id := range s.db.order["classes"] {
		c := s.db.classes[id]
		if c.SchoolID == schoolID && !c.IsDeleted {
			out = append(out, cloneClass(c))
		}
	}
	return out, nil
}

func (s *ClassStore) mutate(op, classID string, fn func(c *models.Class)) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fault(op); err != nil {
		return err
	}
	c, ok := s.db.classes[classID]
	if !ok {
		return store.ErrNotFound
	}
	fn(&c)
	c.UpdatedAt = s.db.now()
	s.db.classes[classID] = c
	return nil
}

func (s *ClassStore) AddStudent(ctx context.Context, classID, studentID string) error {
	return s.mutate(OpClassAddStudent, classID, func(c *models.Class) {
		for _, id := range c.StudentIDs {
			if id == studentID {
				return
			}
		}
		c.StudentIDs = append(c.StudentIDs, studentID)
	})
}

func (s *ClassStore) PullStudent(ctx context.Context, classID, studentID string) error {
	return s.mutate(OpClassPullStudent, classID, func(c *models.Class) {
		kept := c.StudentIDs[:0]
		for _, id := range c.StudentIDs {
			if id != studentID {
				kept = append(kept, id)
			}
		}
		c.StudentIDs = kept
	})
}

func (s *ClassStore) SetRoster(ctx context.Context, classID string, studentIDs []string) error {
	return s.mutate(OpClassSetRoster, classID, func(c *models.Class) {
		c.StudentIDs = cloneStrings(studentIDs)
		if c.StudentIDs == nil {
			c.StudentIDs = []string{}
		}
	})
}

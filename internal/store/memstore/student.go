package memstore

import (
	"context"

	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/store"
)

type StudentStore struct {
	db *DB
}

func (s *StudentStore) Insert(ctx context.Context, st *models.Student) (string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fault(OpStudentInsert); err != nil {
		return "", err
	}
	st.ID = s.db.newID("students")
	s.db.students[st.ID] = *st
	return st.ID, nil
}

func (s *StudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	st, ok := s.db.students[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &st, nil
}

func (s *StudentStore) FindByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []models.Student
	for _, id := range s.db.order["students"] {
		st, ok := s.db.students[id]
		if !ok || st.SchoolID != schoolID {
			continue
		}
		if st.CurrentClassID != nil && *st.CurrentClassID == classID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *StudentStore) Update(ctx context.Context, st *models.Student) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fault(OpStudentUpdate); err != nil {
		return err
	}
	if _, ok := s.db.students[st.ID]; !ok {
		return store.ErrNotFound
	}
	s.db.students[st.ID] = *st
	return nil
}

func (s *StudentStore) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fault(OpStudentDelete); err != nil {
		return err
	}
	if _, ok := s.db.students[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.db.students, id)
	return nil
}

package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/store"
)

type StudentStore struct {
	col *mongo.Collection
}

func (s *StudentStore) Insert(ctx context.Context, st *models.Student) (string, error) {
	st.ID = newID()
	if _, err := s.col.InsertOne(ctx, st); err != nil {
		st.ID = ""
		return "", mapErr(err)
	}
	return st.ID, nil
}

func (s *StudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var st models.Student
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&st); err != nil {
		return nil, mapErr(err)
	}
	return &st, nil
}

func (s *StudentStore) FindByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error) {
	return findAll[models.Student](ctx, s.col, bson.M{"school_id": schoolID, "current_class_id": classID})
}

func (s *StudentStore) Update(ctx context.Context, st *models.Student) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": st.ID}, st)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *StudentStore) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

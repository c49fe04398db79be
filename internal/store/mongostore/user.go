package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/schoolhub/membership/internal/models"
)

type UserStore struct {
	col *mongo.Collection
}

func (s *UserStore) Insert(ctx context.Context, u *models.User) (string, error) {
	u.ID = newID()
	if _, err := s.col.InsertOne(ctx, u); err != nil {
		u.ID = ""
		return "", mapErr(err)
	}
	return u.ID, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *UserStore) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var u models.User
	if err := s.col.FindOne(ctx, bson.M{"external_id": externalID}).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *UserStore) Count(ctx context.Context) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{})
}

func (s *UserStore) TouchLogin(ctx context.Context, id string) error {
	ts := now()
	return updateByID(ctx, s.col, id, bson.M{"$set": bson.M{"last_login": ts, "updated_at": ts}})
}

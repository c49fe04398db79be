package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/store"
)

type SchoolStore struct {
	col *mongo.Collection
}

func (s *SchoolStore) Insert(ctx context.Context, sc *models.School) (string, error) {
	sc.ID = newID()
	if _, err := s.col.InsertOne(ctx, sc); err != nil {
		sc.ID = ""
		return "", mapErr(err)
	}
	return sc.ID, nil
}

func (s *SchoolStore) FindByID(ctx context.Context, id string) (*models.School, error) {
	var sc models.School
	if err := s.col.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&sc); err != nil {
		return nil, mapErr(err)
	}
	return &sc, nil
}

func (s *SchoolStore) Find(ctx context.Context, f store.SchoolFilter) ([]models.School, error) {
	filter := bson.M{"is_deleted": false}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.IDs != nil {
		filter["_id"] = bson.M{"$in": f.IDs}
	}
	return findAll[models.School](ctx, s.col, filter)
}

func (s *SchoolStore) SetStatus(ctx context.Context, id string, status models.SchoolStatus, by string, reason *string) error {
	ts := now()
	set := bson.M{"status": status, "updated_by": by, "updated_at": ts}
	switch status {
	case models.SchoolApproved:
		set["approved_by"] = by
		set["approved_at"] = ts
	case models.SchoolRejected:
		if reason != nil {
			set["rejection_reason"] = *reason
		}
	}
	return updateByID(ctx, s.col, id, bson.M{"$set": set})
}

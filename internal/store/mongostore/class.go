package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/schoolhub/membership/internal/models"
)

type ClassStore struct {
	col *mongo.Collection
}

func (s *ClassStore) Insert(ctx context.Context, c *models.Class) (string, error) {
	if c.StudentIDs == nil {
		c.StudentIDs = []string{}
	}
	c.ID = newID()
	if _, err := s.col.InsertOne(ctx, c); err != nil {
		c.ID = ""
		return "", mapErr(err)
	}
	return c.ID, nil
}

func (s *ClassStore) FindByID(ctx context.Context, id string) (*models.Class, error) {
	var c models.Class
	if err := s.col.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&c); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *ClassStore) FindBySchool(ctx context.Context, schoolID string) ([]models.Class, error) {
	return findAll[models.Class](ctx, s.col, bson.M{"school_id": schoolID, "is_deleted": false})
}

func (s *ClassStore) AddStudent(ctx context.Context, classID, studentID string) error {
	return updateByID(ctx, s.col, classID, bson.M{
		"$addToSet": bson.M{"student_ids": studentID},
		"$set":      bson.M{"updated_at": now()},
	})
}

func (s *ClassStore) PullStudent(ctx context.Context, classID, studentID string) error {
	return updateByID(ctx, s.col, classID, bson.M{
		"$pull": bson.M{"student_ids": studentID},
		"$set":  bson.M{"updated_at": now()},
	})
}

func (s *ClassStore) SetRoster(ctx context.Context, classID string, studentIDs []string) error {
	if studentIDs == nil {
		studentIDs = []string{}
	}
	return updateByID(ctx, s.col, classID, bson.M{"$set": bson.M{
		"student_ids": studentIDs, "updated_at": now(),
	}})
}

package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/store"
)

type MemberStore struct {
	col *mongo.Collection
}

func (s *MemberStore) Insert(ctx context.Context, m *models.Member) (string, error) {
	m.ID = newID()
	if _, err := s.col.InsertOne(ctx, m); err != nil {
		m.ID = ""
		return "", mapErr(err)
	}
	return m.ID, nil
}

func (s *MemberStore) FindByID(ctx context.Context, id string) (*models.Member, error) {
	var m models.Member
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func (s *MemberStore) FindByUserAndSchool(ctx context.Context, userID, schoolID string) (*models.Member, error) {
	var m models.Member
	filter := bson.M{"user_id": userID, "school_id": schoolID, "is_deleted": false}
	if err := s.col.FindOne(ctx, filter).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func memberFilter(f store.MemberFilter) bson.M {
	filter := bson.M{}
	if f.SchoolID != "" {
		filter["school_id"] = f.SchoolID
	}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.ActiveOnly {
		filter["status"] = models.MemberActive
		filter["is_deleted"] = false
	} else if !f.IncludeDeleted {
		filter["is_deleted"] = false
	}
	return filter
}

func (s *MemberStore) Find(ctx context.Context, f store.MemberFilter) ([]models.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}})
	return findAll[models.Member](ctx, s.col, memberFilter(f), opts)
}

func (s *MemberStore) Count(ctx context.Context, f store.MemberFilter) (int64, error) {
	return s.col.CountDocuments(ctx, memberFilter(f))
}

func (s *MemberStore) UpdateRole(ctx context.Context, id string, role permission.SchoolRole, by string) error {
	return updateByID(ctx, s.col, id, bson.M{"$set": bson.M{
		"role": role, "updated_by": by, "updated_at": now(),
	}})
}

func (s *MemberStore) UpdateStatus(ctx context.Context, id string, status models.MemberStatus, by string) error {
	return updateByID(ctx, s.col, id, bson.M{"$set": bson.M{
		"status": status, "updated_by": by, "updated_at": now(),
	}})
}

func (s *MemberStore) AddPermissions(ctx context.Context, id string, perms []permission.Permission, by string) error {
	return updateByID(ctx, s.col, id, bson.M{
		"$addToSet": bson.M{"permissions": bson.M{"$each": perms}},
		"$set":      bson.M{"updated_by": by, "updated_at": now()},
	})
}

func (s *MemberStore) SoftDelete(ctx context.Context, id string, by string) error {
	ts := now()
	return updateByID(ctx, s.col, id, bson.M{"$set": bson.M{
		"status":     models.MemberInactive,
		"is_deleted": true,
		"deleted_at": ts,
		"deleted_by": by,
		"updated_by": by,
		"updated_at": ts,
	}})
}

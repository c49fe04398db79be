// Package mongostore implements the store contract on MongoDB. Documents use
// hex ObjectID strings as _id so that ids stay opaque to the services.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/schoolhub/membership/internal/store"
)

const (
	colMembers  = "members"
	colSchools  = "schools"
	colUsers    = "users"
	colStudents = "students"
	colClasses  = "classes"
)

// New wires every collection of db into a store.Store.
func New(db *mongo.Database) *store.Store {
	return &store.Store{
		Members:  &MemberStore{col: db.Collection(colMembers)},
		Schools:  &SchoolStore{col: db.Collection(colSchools)},
		Users:    &UserStore{col: db.Collection(colUsers)},
		Students: &StudentStore{col: db.Collection(colStudents)},
		Classes:  &ClassStore{col: db.Collection(colClasses)},
	}
}

// EnsureIndexes creates the indexes the services rely on. The partial unique
// index on members turns the (user_id, school_id) check-then-insert race into
// a duplicate key error.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		colMembers: {
			{
				Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "school_id", Value: 1}},
				Options: options.Index().
					SetName("uniq_active_member").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"is_deleted": false}),
			},
			{Keys: bson.D{{Key: "school_id", Value: 1}, {Key: "role", Value: 1}}},
		},
		colUsers: {
			{Keys: bson.D{{Key: "external_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colSchools: {
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colStudents: {
			{Keys: bson.D{{Key: "school_id", Value: 1}, {Key: "current_class_id", Value: 1}}},
		},
		colClasses: {
			{Keys: bson.D{{Key: "school_id", Value: 1}}},
		},
	}
	for col, models := range specs {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	return nil
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

// updateByID applies update to one document and reports ErrNotFound when
// nothing matched.
func updateByID(ctx context.Context, col *mongo.Collection, id string, update bson.M) error {
	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func findAll[T any](ctx context.Context, col *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]T, error) {
	cur, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func now() time.Time {
	return time.Now().UTC()
}

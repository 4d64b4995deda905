package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserDirectory and JobDirectory are the existence checks the resolver
// runs before creating a conversation. The rest of the job-board backend
// owns those collections; this service only reads them.

type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

type JobDirectory interface {
	Exists(ctx context.Context, jobID string) (bool, error)
}

type mongoUserDirectory struct {
	coll *mongo.Collection
}

func NewUserDirectory(coll *mongo.Collection) UserDirectory {
	return &mongoUserDirectory{coll: coll}
}

func (d *mongoUserDirectory) Exists(ctx context.Context, userID string) (bool, error) {
	return existsByID(ctx, d.coll, userID)
}

type mongoJobDirectory struct {
	coll *mongo.Collection
}

func NewJobDirectory(coll *mongo.Collection) JobDirectory {
	return &mongoJobDirectory{coll: coll}
}

func (d *mongoJobDirectory) Exists(ctx context.Context, jobID string) (bool, error) {
	return existsByID(ctx, d.coll, jobID)
}

func existsByID(ctx context.Context, coll *mongo.Collection, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// ids minted elsewhere in the platform may be plain strings
		n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
		return n > 0, err
	}
	n, err := coll.CountDocuments(ctx, bson.M{"_id": oid})
	return n > 0, err
}

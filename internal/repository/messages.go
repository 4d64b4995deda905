package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/careerbridge/chat-service/internal/models"
)

type MessageRepo interface {
	Insert(ctx context.Context, msg *models.Message) (*models.Message, error)
	ListByConversation(ctx context.Context, convID primitive.ObjectID, before time.Time, limit int64) ([]*models.Message, error)
	MarkRead(ctx context.Context, convID primitive.ObjectID, readerID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, convIDs []primitive.ObjectID, readerID string) (int64, error)
}

type mongoMessageRepo struct {
	coll *mongo.Collection
}

func NewMessageRepo(ctx context.Context, coll *mongo.Collection) (MessageRepo, error) {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("conv_created"),
	}
	if _, err := coll.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &mongoMessageRepo{coll: coll}, nil
}

func (r *mongoMessageRepo) Insert(ctx context.Context, msg *models.Message) (*models.Message, error) {
	msg.CreatedAt = time.Now().UTC()
	res, err := r.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, err
	}
	msg.ID = res.InsertedID.(primitive.ObjectID)
	return msg, nil
}

// ListByConversation returns up to limit messages older than before (or the
// newest when before is zero), in chronological order.
func (r *mongoMessageRepo) ListByConversation(ctx context.Context, convID primitive.ObjectID, before time.Time, limit int64) ([]*models.Message, error) {
	filter := bson.M{"conversation_id": convID}
	if !before.IsZero() {
		filter["created_at"] = bson.M{"$lt": before}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Message
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// MarkRead flips every unread message not authored by readerID. Zero
// matches is not an error.
func (r *mongoMessageRepo) MarkRead(ctx context.Context, convID primitive.ObjectID, readerID string, at time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{
			"conversation_id": convID,
			"sender_id":       bson.M{"$ne": readerID},
			"is_read":         false,
		},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoMessageRepo) CountUnread(ctx context.Context, convIDs []primitive.ObjectID, readerID string) (int64, error) {
	if len(convIDs) == 0 {
		return 0, nil
	}
	return r.coll.CountDocuments(ctx, bson.M{
		"conversation_id": bson.M{"$in": convIDs},
		"sender_id":       bson.M{"$ne": readerID},
		"is_read":         false,
	})
}

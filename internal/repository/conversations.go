package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/careerbridge/chat-service/internal/apperr"
	"github.com/careerbridge/chat-service/internal/models"
)

// ErrDuplicate is returned by Insert when the (pair_key, job_id) unique
// index rejects a concurrent creation of the same conversation.
var ErrDuplicate = errors.New("duplicate conversation")

type ConversationRepo interface {
	FindByPair(ctx context.Context, pairKey, jobID string) (*models.Conversation, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	Insert(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string, limit, skip int64) ([]*models.Conversation, error)
	IDsForUser(ctx context.Context, userID string) ([]primitive.ObjectID, error)
	TouchLastMessage(ctx context.Context, convID, msgID primitive.ObjectID, at time.Time) error
}

type mongoConversationRepo struct {
	coll *mongo.Collection
}

// NewConversationRepo ensures the compound unique index that backs
// conversation identity before returning the repo.
func NewConversationRepo(ctx context.Context, coll *mongo.Collection) (ConversationRepo, error) {
	idx := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pair_key", Value: 1}, {Key: "job_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("pair_job_unique"),
		},
		{
			Keys:    bson.D{{Key: "participants", Value: 1}, {Key: "last_message_at", Value: -1}},
			Options: options.Index().SetName("participants_recent"),
		},
	}
	if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
		return nil, err
	}
	return &mongoConversationRepo{coll: coll}, nil
}

func (r *mongoConversationRepo) FindByPair(ctx context.Context, pairKey, jobID string) (*models.Conversation, error) {
	var c models.Conversation
	err := r.coll.FindOne(ctx, bson.M{"pair_key": pairKey, "job_id": jobID}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *mongoConversationRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	var c models.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *mongoConversationRepo) Insert(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	res, err := r.coll.InsertOne(ctx, conv)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	conv.ID = res.InsertedID.(primitive.ObjectID)
	return conv, nil
}

func (r *mongoConversationRepo) ListForUser(ctx context.Context, userID string, limit, skip int64) ([]*models.Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "last_message_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(skip)
	cur, err := r.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Conversation
	for cur.Next(ctx) {
		var c models.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

// IDsForUser returns the ids of every conversation the user belongs to,
// unpaged, with an _id-only projection. Backs cross-conversation
// aggregates like the unread counter.
func (r *mongoConversationRepo) IDsForUser(ctx context.Context, userID string) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := r.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []primitive.ObjectID
	for cur.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.ID)
	}
	return out, cur.Err()
}

func (r *mongoConversationRepo) TouchLastMessage(ctx context.Context, convID, msgID primitive.ObjectID, at time.Time) error {
	_, err := r.coll.UpdateByID(ctx, convID, bson.M{"$set": bson.M{
		"last_message_id": msgID,
		"last_message_at": at,
		"updated_at":      at,
	}})
	return err
}

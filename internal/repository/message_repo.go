package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sonna/internal/model"
	"sonna/internal/pkg/id"
)

// MessageRepo messages collection access
type MessageRepo struct {
	collection *mongo.Collection
}

// NewMessageRepo creates a message repository
func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{
		collection: db.Collection("messages"),
	}
}

// Add inserts a message. The caller supplies CreatedAt so the message
// and the parent conversation touch share one timestamp.
func (r *MessageRepo) Add(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = id.New()
	}
	_, err := r.collection.InsertOne(ctx, msg)
	return err
}

// Recent returns the last limit messages of a conversation in
// chronological order. The query walks the index newest-first and the
// result is reversed so callers always see oldest-first history.
func (r *MessageRepo) Recent(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []*model.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ListByConversation returns a conversation's messages oldest-first
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []*model.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteByConversation removes every message of a conversation
func (r *MessageRepo) DeleteByConversation(ctx context.Context, conversationID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

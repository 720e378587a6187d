package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sonna/internal/model"
	"sonna/internal/pkg/id"
)

// ConversationRepo conversations collection access
type ConversationRepo struct {
	collection *mongo.Collection
}

// NewConversationRepo creates a conversation repository
func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	return &ConversationRepo{
		collection: db.Collection("conversations"),
	}
}

var placeholderPattern = "^" + regexp.QuoteMeta(model.TitlePlaceholderPrefix)

// GetOrCreateActive returns the user's most recently updated conversation
// inside the active window, inserting a fresh one in the same round trip
// when none qualifies. The upsert carries the full new document via
// $setOnInsert and leaves matched documents untouched, so reading an
// active conversation never advances its activity timestamp.
//
// Concurrent first turns for one user can still both upsert; the lookup
// sort makes later turns converge on a single conversation.
func (r *ConversationRepo) GetOrCreateActive(ctx context.Context, userID string, now time.Time) (*model.Conversation, error) {
	cutoff := now.Add(-model.ActiveWindow)

	filter := bson.M{
		"user_id":    userID,
		"updated_at": bson.M{"$gte": cutoff},
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":        id.New(),
			"title":      model.PlaceholderTitle(now),
			"metadata":   bson.M{"source": "voice"},
			"created_at": now,
			"updated_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetReturnDocument(options.After)

	var conv model.Conversation
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindByID looks a conversation up by ID
func (r *ConversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// Touch advances the conversation's activity timestamp. Reports
// ErrNotFound when the conversation does not exist, which doubles as the
// existence check before a message insert.
func (r *ConversationRepo) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"updated_at": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MaybeRetitle rewrites the title from candidate, truncated, only while
// the current title still carries the placeholder prefix. The guard
// lives in the filter, so repeated calls are no-ops once a real title is
// set. Does not advance updated_at. Returns whether a rewrite happened.
func (r *ConversationRepo) MaybeRetitle(ctx context.Context, id, candidate string) (bool, error) {
	filter := bson.M{
		"_id":   id,
		"title": bson.M{"$regex": placeholderPattern},
	}
	update := bson.M{
		"$set": bson.M{"title": model.TitleFromMessage(candidate)},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// ListByUser returns the user's conversations, most recent activity first
func (r *ConversationRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var convs []*model.Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// ReassignUser moves every conversation of fromUserID to toUserID.
// Used by the out-of-band identity migration.
func (r *ConversationRepo) ReassignUser(ctx context.Context, fromUserID, toUserID string) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"user_id": fromUserID},
		bson.M{"$set": bson.M{"user_id": toUserID}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Delete removes a conversation
func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

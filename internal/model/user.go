package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// User account entity. A single default user exists when no auth is
// configured; it is resolved once at startup, never per turn.
// Preferences is an open-ended document (interests, goals, daily
// routine, timezone, ...) consumed read-only by response generation.
type User struct {
	ID          string         `bson:"_id,omitempty" json:"id"`
	Name        string         `bson:"name" json:"name"`
	Email       string         `bson:"email" json:"email"`
	Preferences map[string]any `bson:"preferences,omitempty" json:"preferences,omitempty"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at" json:"updated_at"`
}

// Collection returns the collection name
func (u *User) Collection() string {
	return "users"
}

// EnsureIndexes creates and maintains indexes
func (u *User) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(u.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_email").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("idx_name"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}

// Timezone returns the user's timezone preference, or def when unset.
func (u *User) Timezone(def string) string {
	if u == nil || u.Preferences == nil {
		return def
	}
	if tz, ok := u.Preferences["timezone"].(string); ok && tz != "" {
		return tz
	}
	return def
}

package model

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ActiveWindow is how long a conversation stays active after its last
// message. A lookup inside the window resumes the conversation; outside
// it a new one is started.
const ActiveWindow = 2 * time.Hour

// Conversation groups the messages of one dialogue session.
// UpdatedAt is derived solely from message activity: it always equals
// the creation time of the most recent message.
type Conversation struct {
	ID        string         `bson:"_id,omitempty" json:"id"`
	UserID    string         `bson:"user_id" json:"user_id"`
	Title     string         `bson:"title" json:"title"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at" json:"updated_at"`
}

// Collection returns the collection name
func (c *Conversation) Collection() string {
	return "conversations"
}

// EnsureIndexes creates and maintains indexes
func (c *Conversation) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(c.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_user_updated"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}

// IsActive reports whether the conversation is still inside the active
// window at the given instant.
func (c *Conversation) IsActive(now time.Time) bool {
	return now.Sub(c.UpdatedAt) <= ActiveWindow
}

// TitlePlaceholderPrefix marks a title that has not yet been derived
// from a real message. While the title carries this prefix the next
// retitle attempt rewrites it; afterwards retitling is a no-op.
const TitlePlaceholderPrefix = "Conversation at "

// titleMaxRunes caps derived titles before the ellipsis is appended.
const titleMaxRunes = 50

// PlaceholderTitle builds the initial title for a new conversation.
func PlaceholderTitle(t time.Time) string {
	return TitlePlaceholderPrefix + t.Format("03:04 PM")
}

// HasPlaceholderTitle reports whether a title is still the placeholder.
func HasPlaceholderTitle(title string) bool {
	return strings.HasPrefix(title, TitlePlaceholderPrefix)
}

// TitleFromMessage derives a conversation title from its first message,
// truncated to 50 characters with an ellipsis when longer.
func TitleFromMessage(text string) string {
	runes := []rune(text)
	if len(runes) > titleMaxRunes {
		return string(runes[:titleMaxRunes]) + "..."
	}
	return text
}

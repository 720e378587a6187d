package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Role message author role
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// IsValid reports whether the role is one of the known values
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// String returns the role string
func (r Role) String() string {
	return string(r)
}

// Message one utterance inside a conversation. Immutable once created;
// ordered by CreatedAt within its conversation. AudioPath optionally
// references an archived audio artifact in object storage.
type Message struct {
	ID             string         `bson:"_id,omitempty" json:"id"`
	ConversationID string         `bson:"conversation_id" json:"conversation_id"`
	Role           Role           `bson:"role" json:"role"`
	Content        string         `bson:"content" json:"content"`
	AudioPath      string         `bson:"audio_path,omitempty" json:"audio_path,omitempty"`
	Metadata       map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt      time.Time      `bson:"created_at" json:"created_at"`
}

// Collection returns the collection name
func (m *Message) Collection() string {
	return "messages"
}

// EnsureIndexes creates and maintains indexes
func (m *Message) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(m.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_conversation_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}

// ContextEntry one dialogue-history entry handed to the response
// generator: the role/content pair of a message, nothing more.
type ContextEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ContextEntryOf projects a message onto its history entry
func ContextEntryOf(m *Message) ContextEntry {
	return ContextEntry{Role: m.Role, Content: m.Content}
}

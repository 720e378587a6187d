package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"sonna/internal/model"
)

// EnsureIndexes creates the indexes of every collection at startup.
func EnsureIndexes(db *mongo.Database) error {
	ctx := context.Background()

	models := []Model{
		&model.User{},
		&model.Conversation{},
		&model.Message{},
	}

	return EnsureAllIndexes(ctx, db, models...)
}

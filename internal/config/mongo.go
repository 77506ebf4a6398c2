package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RecipesCollection is the collection (and SQL table) holding saved recipes.
const RecipesCollection = "recipes"

// ConnectMongoDB builds a client without pinging; the driver dials on first use,
// so an unreachable server only shows up as an error on the first operation.
func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(5 * time.Second)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid MONGO_URI: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}
	return client, nil
}

// CreateIndexes prepares the recipes collection for id upserts and
// newest-first listing.
func CreateIndexes(ctx context.Context, client *mongo.Client, dbName string) error {
	recipes := client.Database(dbName).Collection(RecipesCollection)
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "lesson_name", Value: 1}},
		},
	}
	if _, err := recipes.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create recipe indexes: %w", err)
	}
	return nil
}

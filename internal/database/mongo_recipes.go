package database

import (
	"context"
	"fmt"
	"regexp"

	"chefshelf/internal/config"
	"chefshelf/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRecipes stores recipes in a MongoDB collection.
type MongoRecipes struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoRecipes(client *mongo.Client, dbName string) *MongoRecipes {
	return &MongoRecipes{
		client:     client,
		collection: client.Database(dbName).Collection(config.RecipesCollection),
	}
}

func (m *MongoRecipes) Name() string { return config.BackendMongo }

// InsertRecipes upserts by id so repeated inserts of the same record are no-ops.
func (m *MongoRecipes) InsertRecipes(ctx context.Context, recipes []models.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(recipes))
	for _, r := range recipes {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"id": r.ID}).
			SetUpdate(bson.M{"$setOnInsert": r}).
			SetUpsert(true))
	}

	if _, err := m.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("mongo insert recipes: %w", err)
	}
	return nil
}

// SearchRecipes matches title or lesson_name with a case-insensitive literal
// substring, newest first.
func (m *MongoRecipes) SearchRecipes(ctx context.Context, query string) ([]models.Recipe, error) {
	filter := bson.M{}
	if query != "" {
		pattern := regexp.QuoteMeta(query)
		filter = bson.M{"$or": bson.A{
			bson.M{"title": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"lesson_name": bson.M{"$regex": pattern, "$options": "i"}},
		}}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo search recipes: %w", err)
	}
	defer cursor.Close(ctx)

	recipes := []models.Recipe{}
	if err := cursor.All(ctx, &recipes); err != nil {
		return nil, fmt.Errorf("mongo decode recipes: %w", err)
	}
	return recipes, nil
}

func (m *MongoRecipes) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

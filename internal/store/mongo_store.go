package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mpsingh12/imageshop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const basketsCollection = "baskets"

type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection(basketsCollection),
	}
}

func (m *MongoStore) Get(ctx context.Context, key string) (*domain.Basket, error) {
	var basket domain.Basket

	filter := bson.M{"owner_id": key}
	err := m.collection.FindOne(ctx, filter).Decode(&basket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, unavailable("get basket", err)
	}

	return &basket, nil
}

// Put replaces the whole document, creating it when missing.
func (m *MongoStore) Put(ctx context.Context, basket *domain.Basket) error {
	filter := bson.M{"owner_id": basket.OwnerID}
	opts := options.Replace().SetUpsert(true)

	_, err := m.collection.ReplaceOne(ctx, filter, basket, opts)
	if err != nil {
		return unavailable("put basket", err)
	}

	return nil
}

func (m *MongoStore) Delete(ctx context.Context, basket *domain.Basket) error {
	filter := bson.M{"owner_id": basket.OwnerID}

	// DeletedCount == 0 means the basket was already gone
	if _, err := m.collection.DeleteOne(ctx, filter); err != nil {
		return unavailable("delete basket", err)
	}

	return nil
}

func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/mpsingh12/imageshop/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
)

func setupTestMongo(t *testing.T) (*MongoStore, func()) {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, MongoOptions{URI: uri, Database: "testdb"})
	require.NoError(t, err)

	store := NewMongoStore(db)
	require.NoError(t, store.CreateIndexes(ctx))

	cleanup := func() {
		_ = db.Client().Disconnect(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return store, cleanup
}

func TestMongoStore_GetMissing(t *testing.T) {
	store, cleanup := setupTestMongo(t)
	defer cleanup()

	basket, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, basket)
}

func TestMongoStore_PutReplacesWholeRecord(t *testing.T) {
	store, cleanup := setupTestMongo(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	err := store.Put(ctx, &domain.Basket{
		OwnerID:   "u1",
		Items:     []domain.Item{{ID: "img1"}, {ID: "img2"}},
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)

	err = store.Put(ctx, &domain.Basket{
		OwnerID:   "u1",
		Items:     []domain.Item{{ID: "img2", Metadata: map[string]any{"title": "sunset", "size": map[string]any{"w": 640}}}},
		CreatedAt: now,
		UpdatedAt: now.Add(time.Minute),
	})
	require.NoError(t, err)

	basket, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, basket.Items, 1)
	assert.Equal(t, "img2", basket.Items[0].ID)
	assert.Equal(t, "sunset", basket.Items[0].Metadata["title"])
	assert.Equal(t, bson.M{"w": int32(640)}, basket.Items[0].Metadata["size"])
	assert.True(t, now.Add(time.Minute).Equal(basket.UpdatedAt))
}

func TestMongoStore_Delete(t *testing.T) {
	store, cleanup := setupTestMongo(t)
	defer cleanup()
	ctx := context.Background()

	basket := &domain.Basket{OwnerID: "u1", Items: []domain.Item{{ID: "img1"}}}
	require.NoError(t, store.Put(ctx, basket))
	require.NoError(t, store.Delete(ctx, basket))

	_, err := store.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Already absent
	assert.NoError(t, store.Delete(ctx, basket))
}

func TestMongoStore_ContextCancellation(t *testing.T) {
	store, cleanup := setupTestMongo(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	time.Sleep(10 * time.Millisecond) // Ensure context is cancelled

	_, err := store.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "context")
}

package store

import (
	"context"
	"sync"
	"testing"

	"github.com/mpsingh12/imageshop/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	basket, err := store.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, basket)
}

func TestMemoryStore_PutAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Put(ctx, &domain.Basket{
		OwnerID: "u1",
		Items:   []domain.Item{{ID: "img1", Metadata: map[string]any{"name": "cat.png"}}},
	})
	require.NoError(t, err)

	basket, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", basket.OwnerID)
	require.Len(t, basket.Items, 1)
	assert.Equal(t, "img1", basket.Items[0].ID)
	assert.Equal(t, "cat.png", basket.Items[0].Metadata["name"])
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := &domain.Basket{OwnerID: "u1", Items: []domain.Item{{ID: "img1"}}}
	require.NoError(t, store.Put(ctx, original))

	// Mutating the caller's basket must not leak into the store
	original.Items[0].ID = "changed"

	first, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "img1", first.Items[0].ID)

	first.Items = append(first.Items, domain.Item{ID: "img2"})

	second, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	basket := &domain.Basket{OwnerID: "u1", Items: []domain.Item{{ID: "img1"}}}
	require.NoError(t, store.Put(ctx, basket))
	require.NoError(t, store.Delete(ctx, basket))

	_, err := store.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.Len())

	// Deleting again is not an error
	assert.NoError(t, store.Delete(ctx, basket))
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)

	err = store.Put(ctx, &domain.Basket{OwnerID: "u1", Items: []domain.Item{{ID: "img1"}}})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			owner := string(rune('a' + i%26))
			_ = store.Put(ctx, &domain.Basket{OwnerID: owner, Items: []domain.Item{{ID: "img"}}})
			_, _ = store.Get(ctx, owner)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 26, store.Len())
}

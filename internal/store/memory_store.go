package store

import (
	"context"
	"sync"

	"github.com/mpsingh12/imageshop/internal/domain"
)

// MemoryStore implements Store with in-memory storage
type MemoryStore struct {
	mu      sync.RWMutex
	baskets map[string]*domain.Basket // ownerID -> basket
}

// NewMemoryStore creates a new in-memory basket store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		baskets: make(map[string]*domain.Basket),
	}
}

// Get returns a copy of the stored basket
func (s *MemoryStore) Get(ctx context.Context, key string) (*domain.Basket, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("get basket", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	basket, exists := s.baskets[key]
	if !exists {
		return nil, ErrNotFound
	}
	return basket.Clone(), nil
}

// Put stores a copy of the basket
func (s *MemoryStore) Put(ctx context.Context, basket *domain.Basket) error {
	if err := ctx.Err(); err != nil {
		return unavailable("put basket", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.baskets[basket.OwnerID] = basket.Clone()
	return nil
}

// Delete removes the basket if present
func (s *MemoryStore) Delete(ctx context.Context, basket *domain.Basket) error {
	if err := ctx.Err(); err != nil {
		return unavailable("delete basket", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.baskets, basket.OwnerID)
	return nil
}

// Len returns the number of stored baskets
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.baskets)
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mpsingh12/imageshop/internal/domain"
)

// Common errors returned by the store adapters
var (
	ErrNotFound    = errors.New("basket not found in store")
	ErrUnavailable = errors.New("basket store unavailable")
)

// Store is the key-value backend holding baskets keyed by owner ID.
// Implementations perform I/O on every call and keep no basket state of their own.
type Store interface {
	// Get returns the basket stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (*domain.Basket, error)

	// Put writes the whole basket, replacing any existing record.
	Put(ctx context.Context, basket *domain.Basket) error

	// Delete removes the basket. Deleting a missing basket is not an error.
	Delete(ctx context.Context, basket *domain.Basket) error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mpsingh12/imageshop/internal/domain"
	"github.com/mpsingh12/imageshop/internal/store"
)

var (
	ErrBasketNotFound = errors.New("basket not found")
	ErrNotConnected   = errors.New("basket store not connected")
)

// BasketRepository defines the interface for basket data operations.
// It maps owners to store keys and nothing more; merge rules live in the service.
type BasketRepository interface {
	GetBasket(ctx context.Context, ownerID string) (*domain.Basket, error)
	SaveBasket(ctx context.Context, basket *domain.Basket) error
	DeleteBasket(ctx context.Context, basket *domain.Basket) error
}

type storeRepository struct {
	store store.Store
	now   func() time.Time
}

func NewBasketRepository(s store.Store) BasketRepository {
	return &storeRepository{
		store: s,
		now:   time.Now,
	}
}

// storeKey derives the store key for an owner. Owners map to keys one to one.
func storeKey(ownerID string) string {
	return ownerID
}

func (r *storeRepository) GetBasket(ctx context.Context, ownerID string) (*domain.Basket, error) {
	basket, err := r.store.Get(ctx, storeKey(ownerID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBasketNotFound
		}
		return nil, translate("get basket", err)
	}
	return basket, nil
}

func (r *storeRepository) SaveBasket(ctx context.Context, basket *domain.Basket) error {
	now := r.now()

	// Set timestamps
	if basket.CreatedAt.IsZero() {
		basket.CreatedAt = now
	}
	basket.UpdatedAt = now

	basket.OwnerID = storeKey(basket.OwnerID)
	if err := r.store.Put(ctx, basket); err != nil {
		return translate("save basket", err)
	}
	return nil
}

func (r *storeRepository) DeleteBasket(ctx context.Context, basket *domain.Basket) error {
	target := &domain.Basket{OwnerID: storeKey(basket.OwnerID), Items: basket.Items}
	if err := r.store.Delete(ctx, target); err != nil {
		return translate("delete basket", err)
	}
	return nil
}

// translate marks every adapter failure as ErrNotConnected while keeping the
// adapter's error in the chain.
func translate(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrNotConnected, op, err)
}

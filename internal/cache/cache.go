package cache

import (
	"context"
	"errors"

	"github.com/mpsingh12/imageshop/internal/domain"
)

// BasketCache holds read copies of baskets in front of the repository.
// It only serves GetBasket; add and remove always read the repository.
//
// Every owner carries a version that Delete advances. A reader takes the
// version before it reads the repository and hands it to Fill, so a basket
// read before a later write can never land in the cache after that write's
// Delete.
type BasketCache interface {
	Get(ctx context.Context, ownerID string) (*domain.Basket, error)
	Version(ctx context.Context, ownerID string) (int64, error)
	// Fill stores basket only while the owner's version still equals
	// version, and reports whether it did.
	Fill(ctx context.Context, ownerID string, basket *domain.Basket, version int64) (bool, error)
	Delete(ctx context.Context, ownerID string) error
}

var ErrCacheMiss = errors.New("cache miss")

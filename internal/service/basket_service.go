package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/mpsingh12/imageshop/internal/cache"
	"github.com/mpsingh12/imageshop/internal/domain"
	"github.com/mpsingh12/imageshop/internal/repository"
)

var tracer = otel.Tracer("github.com/mpsingh12/imageshop/internal/service")

// BasketService reconciles single-item add and remove requests against the
// stored basket of an owner.
//
// Every call is one unguarded read-modify-write against the repository: two
// concurrent adds for the same owner can both read the same basket and the
// later write wins. WithOwnerLocks closes that gap within one process only.
type BasketService struct {
	repo   repository.BasketRepository
	cache  cache.BasketCache
	logger *slog.Logger
	locks  *ownerLocks
	sfg    singleflight.Group // Prevents cache stampede

	readTimeout time.Duration
}

const defaultReadTimeout = 5 * time.Second

type Option func(*BasketService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *BasketService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOwnerLocks serializes operations on the same owner using n striped
// mutexes. n <= 0 keeps the unguarded behaviour.
func WithOwnerLocks(n int) Option {
	return func(s *BasketService) {
		s.locks = newOwnerLocks(n)
	}
}

// WithReadTimeout bounds the shared GetBasket read.
func WithReadTimeout(d time.Duration) Option {
	return func(s *BasketService) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// NewBasketService creates the service. basketCache may be nil, which turns
// GetBasket into a plain repository read.
func NewBasketService(repo repository.BasketRepository, basketCache cache.BasketCache, opts ...Option) *BasketService {
	s := &BasketService{
		repo:   repo,
		cache:  basketCache,
		logger: slog.Default(),

		readTimeout: defaultReadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddItem puts item into the owner's basket, creating the basket on first add.
func (s *BasketService) AddItem(ctx context.Context, ownerID string, item *domain.Item) (outcome domain.Outcome, err error) {
	ctx, span := tracer.Start(ctx, "BasketService.AddItem", trace.WithAttributes(
		attribute.String("basket.owner_id", ownerID),
	))
	defer func() { endSpan(span, outcome, err) }()

	if ownerID == "" || item == nil || item.ID == "" {
		return domain.OutcomeMissingInput, nil
	}
	span.SetAttributes(attribute.String("basket.item_id", item.ID))

	unlock := s.locks.lock(ownerID)
	defer unlock()

	current, err := s.repo.GetBasket(ctx, ownerID)
	if errors.Is(err, repository.ErrBasketNotFound) {
		basket := &domain.Basket{
			OwnerID: ownerID,
			Items:   []domain.Item{*item},
		}
		if err := s.repo.SaveBasket(ctx, basket); err != nil {
			return s.storeFailure(ctx, "create basket", ownerID, err)
		}
		s.invalidateCache(ownerID)
		return domain.OutcomeCreated, nil
	}
	if err != nil {
		return s.storeFailure(ctx, "get basket", ownerID, err)
	}

	if current.IndexOf(*item) >= 0 {
		return domain.OutcomeAlreadyExists, nil
	}

	updated := current.Clone()
	updated.Items = append(updated.Items, *item)
	if err := s.repo.SaveBasket(ctx, updated); err != nil {
		return s.storeFailure(ctx, "save basket", ownerID, err)
	}
	s.invalidateCache(ownerID)
	return domain.OutcomeAdded, nil
}

// RemoveItem takes item out of the owner's basket. A basket left without
// items is deleted rather than saved.
func (s *BasketService) RemoveItem(ctx context.Context, ownerID string, item *domain.Item) (outcome domain.Outcome, err error) {
	ctx, span := tracer.Start(ctx, "BasketService.RemoveItem", trace.WithAttributes(
		attribute.String("basket.owner_id", ownerID),
	))
	defer func() { endSpan(span, outcome, err) }()

	if ownerID == "" {
		return domain.OutcomeMissingInput, nil
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	current, err := s.repo.GetBasket(ctx, ownerID)
	if errors.Is(err, repository.ErrBasketNotFound) {
		return domain.OutcomeNoBasket, nil
	}
	if err != nil {
		return s.storeFailure(ctx, "get basket", ownerID, err)
	}

	if item == nil || item.ID == "" {
		return domain.OutcomeMissingInput, nil
	}
	span.SetAttributes(attribute.String("basket.item_id", item.ID))

	if idx := current.IndexOf(*item); idx >= 0 {
		updated := current.Clone()
		updated.Items = append(updated.Items[:idx], updated.Items[idx+1:]...)

		if len(updated.Items) == 0 {
			if err := s.repo.DeleteBasket(ctx, current); err != nil {
				return s.storeFailure(ctx, "delete basket", ownerID, err)
			}
			s.invalidateCache(ownerID)
			return domain.OutcomeRemovedBasketDeleted, nil
		}

		if err := s.repo.SaveBasket(ctx, updated); err != nil {
			return s.storeFailure(ctx, "save basket", ownerID, err)
		}
		s.invalidateCache(ownerID)
		return domain.OutcomeRemoved, nil
	}

	// A stored basket with no items breaks the at-least-one-item rule; drop it.
	// Only a writer outside this service, or a lost update, can leave one behind.
	if len(current.Items) == 0 {
		s.logger.WarnContext(ctx, "pruning empty basket", "owner_id", ownerID)
		if err := s.repo.DeleteBasket(ctx, current); err != nil {
			return s.storeFailure(ctx, "prune basket", ownerID, err)
		}
		s.invalidateCache(ownerID)
		return domain.OutcomeNotFoundBasketPruned, nil
	}

	return domain.OutcomeNotFound, nil
}

// GetBasket returns the owner's basket, or nil when the owner has none.
func (s *BasketService) GetBasket(ctx context.Context, ownerID string) (*domain.Basket, error) {
	if ownerID == "" {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "BasketService.GetBasket", trace.WithAttributes(
		attribute.String("basket.owner_id", ownerID),
	))
	defer span.End()

	// Use singleflight to prevent multiple concurrent cache misses for same key.
	// The read is shared by every caller in the flight, so it must not end
	// when the first caller's context does.
	v, err, _ := s.sfg.Do(ownerID, func() (interface{}, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.readTimeout)
		defer cancel()
		return s.readThrough(readCtx, ownerID)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "get basket failed", "owner_id", ownerID, "error", err)
		return nil, err
	}

	basket, _ := v.(*domain.Basket)
	if basket == nil {
		span.SetAttributes(attribute.Bool("basket.found", false))
		return nil, nil
	}
	span.SetAttributes(attribute.Bool("basket.found", true), attribute.Int("basket.items", len(basket.Items)))
	return basket.Clone(), nil
}

func (s *BasketService) readThrough(ctx context.Context, ownerID string) (*domain.Basket, error) {
	var (
		version   int64
		fillCache bool
	)
	if s.cache != nil {
		basket, err := s.cache.Get(ctx, ownerID)
		if err == nil {
			return basket, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "cache get error", "owner_id", ownerID, "error", err)
		}
		// Must be taken before the repository read.
		if version, err = s.cache.Version(ctx, ownerID); err != nil {
			s.logger.WarnContext(ctx, "cache version error", "owner_id", ownerID, "error", err)
		} else {
			fillCache = true
		}
	}

	basket, err := s.repo.GetBasket(ctx, ownerID)
	if errors.Is(err, repository.ErrBasketNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if fillCache {
		go s.fill(ownerID, basket.Clone(), version)
	}
	return basket, nil
}

// fill caches a basket read at version. A write that invalidated the owner
// since then makes it a no-op.
func (s *BasketService) fill(ownerID string, basket *domain.Basket, version int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stored, err := s.cache.Fill(ctx, ownerID, basket, version)
	switch {
	case err != nil:
		s.logger.Warn("cache set error", "owner_id", ownerID, "error", err)
	case !stored:
		s.logger.Debug("cache fill skipped, basket changed during read", "owner_id", ownerID)
	}
}

func (s *BasketService) storeFailure(ctx context.Context, op, ownerID string, err error) (domain.Outcome, error) {
	s.logger.ErrorContext(ctx, "basket store failure", "op", op, "owner_id", ownerID, "error", err)
	return domain.OutcomeStoreUnavailable, err
}

// invalidateCache drops the cached copy after a write. Failures are only logged.
func (s *BasketService) invalidateCache(ownerID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, ownerID); err != nil {
		s.logger.Warn("cache invalidate error", "owner_id", ownerID, "error", err)
	}
}

func endSpan(span trace.Span, outcome domain.Outcome, err error) {
	span.SetAttributes(attribute.String("basket.outcome", outcome.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/mpsingh12/imageshop/internal/domain"
)

// BreakerSettings configures the circuit breaker wrapped around a Store.
type BreakerSettings struct {
	Name string
	// ConsecutiveFailures trips the breaker once reached.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// HalfOpenRequests is how many trial requests are let through while half-open.
	HalfOpenRequests uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:                "basket-store",
		ConsecutiveFailures: 5,
		OpenTimeout:         10 * time.Second,
		HalfOpenRequests:    1,
	}
}

// BreakerStore fails fast with ErrUnavailable while the backend keeps failing.
// ErrNotFound is a normal answer and never counts against the backend.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[*domain.Basket]
}

func WithBreaker(next Store, settings BreakerSettings, logger *slog.Logger) *BreakerStore {
	if logger == nil {
		logger = slog.Default()
	}
	st := gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	}
	return &BreakerStore{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*domain.Basket](st),
	}
}

func (b *BreakerStore) Get(ctx context.Context, key string) (*domain.Basket, error) {
	basket, err := b.cb.Execute(func() (*domain.Basket, error) {
		return b.next.Get(ctx, key)
	})
	return basket, b.translate("get basket", err)
}

func (b *BreakerStore) Put(ctx context.Context, basket *domain.Basket) error {
	_, err := b.cb.Execute(func() (*domain.Basket, error) {
		return nil, b.next.Put(ctx, basket)
	})
	return b.translate("put basket", err)
}

func (b *BreakerStore) Delete(ctx context.Context, basket *domain.Basket) error {
	_, err := b.cb.Execute(func() (*domain.Basket, error) {
		return nil, b.next.Delete(ctx, basket)
	})
	return b.translate("delete basket", err)
}

// State exposes the breaker state for health reporting.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

// Healthy reports the breaker state name and whether calls are let through.
func (b *BreakerStore) Healthy() (string, bool) {
	state := b.State()
	return state.String(), state != gobreaker.StateOpen
}

func (b *BreakerStore) translate(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return unavailable(op, err)
	}
	return err
}

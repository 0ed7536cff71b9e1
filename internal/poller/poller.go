package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jpillora/backoff"
	"github.com/segmentio/kafka-go"

	c "github.com/mpsingh12/imageshop/internal/cache"
	"github.com/mpsingh12/imageshop/internal/domain"
	r "github.com/mpsingh12/imageshop/internal/repository"
)

const (
	DefaultTopic   = "checkout-outbox"
	DefaultGroupID = "basket-service-consumer"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Poller drops an owner's basket once their checkout completes.
type Poller struct {
	repo    r.BasketRepository
	reader  messageReader
	cache   c.BasketCache
	logger  *slog.Logger
	backoff *backoff.Backoff
}

func NewPoller(repo r.BasketRepository, cache c.BasketCache, logger *slog.Logger, topic, groupID string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newPoller(repo, cache, logger, reader)
}

func newPoller(repo r.BasketRepository, cache c.BasketCache, logger *slog.Logger, reader messageReader) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		repo:   repo,
		reader: reader,
		cache:  cache,
		logger: logger,
		backoff: &backoff.Backoff{
			Min:    100 * time.Millisecond,
			Max:    10 * time.Second,
			Factor: 2,
			Jitter: true,
		},
	}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.getMessageAndDropBasket(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := p.backoff.Duration()
			p.logger.Warn("checkout consumer read failed", "error", err, "retry_in", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			}
			continue
		}
		p.backoff.Reset()
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Error("error closing reader", "error", err)
	}
}

type checkoutEvent struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

// getMessageAndDropBasket returns an error only when reading from the broker
// fails. Bad payloads and store failures are logged and the message skipped.
func (p *Poller) getMessageAndDropBasket(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		return err
	}

	var event checkoutEvent
	if errUnMarshal := json.Unmarshal(m.Value, &event); errUnMarshal != nil {
		p.logger.Warn("error parsing checkout message", "offset", m.Offset, "error", errUnMarshal)
		return nil
	}
	if event.UserID == "" {
		p.logger.Warn("checkout message without user_id", "offset", m.Offset)
		return nil
	}

	errDelete := p.repo.DeleteBasket(ctx, &domain.Basket{OwnerID: event.UserID})
	if errDelete != nil && !errors.Is(errDelete, r.ErrBasketNotFound) {
		p.logger.Error("failed to delete basket", "owner_id", event.UserID, "error", errDelete)
		return nil
	}

	if p.cache != nil {
		if errCacheDelete := p.cache.Delete(ctx, event.UserID); errCacheDelete != nil {
			p.logger.Warn("failed to delete cached basket", "owner_id", event.UserID, "error", errCacheDelete)
		}
	}

	p.logger.Info("basket dropped after checkout", "owner_id", event.UserID, "checkout_id", event.CheckoutID)
	return nil
}

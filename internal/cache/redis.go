package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/mpsingh12/imageshop/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "basket:"
	versionPrefix = "basket-version:"

	// versionTTL outlives any read that could still be holding the version.
	versionTTL = 24 * time.Hour

	DefaultTTL       = 5 * time.Minute
	DefaultTTLJitter = time.Minute
)

// KEYS[1] basket, KEYS[2] version; ARGV version, payload, ttl in ms.
var fillScript = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisCache stores baskets as JSON under basket:<ownerID> and the owner's
// version under basket-version:<ownerID>. An entry lives for the base TTL
// plus a random share of the jitter.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	jitter time.Duration
	logger *slog.Logger
}

type RedisOption func(*RedisCache)

func WithTTL(ttl, jitter time.Duration) RedisOption {
	return func(r *RedisCache) {
		if ttl > 0 {
			r.ttl = ttl
		}
		if jitter >= 0 {
			r.jitter = jitter
		}
	}
}

func WithCacheLogger(logger *slog.Logger) RedisOption {
	return func(r *RedisCache) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRedisCache(client redis.Cmdable, opts ...RedisOption) *RedisCache {
	r := &RedisCache{
		client: client,
		ttl:    DefaultTTL,
		jitter: DefaultTTLJitter,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the cached basket. Entries that cannot be decoded, or that
// belong to another owner, are evicted and reported as a miss.
func (r *RedisCache) Get(ctx context.Context, ownerID string) (*domain.Basket, error) {
	key := cacheKey(ownerID)

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var basket domain.Basket
	if err := json.Unmarshal(data, &basket); err != nil || basket.OwnerID != ownerID {
		r.logger.WarnContext(ctx, "evicting unreadable basket cache entry", "key", key, "error", err)
		if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
			return nil, fmt.Errorf("redis evict %s: %w", key, delErr)
		}
		return nil, ErrCacheMiss
	}
	return &basket, nil
}

// Version returns the owner's invalidation counter; an owner never
// invalidated is at version 0.
func (r *RedisCache) Version(ctx context.Context, ownerID string) (int64, error) {
	version, err := r.client.Get(ctx, versionKey(ownerID)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("redis get %s: %w", versionKey(ownerID), err)
	}
	return version, nil
}

// Fill writes basket unless Delete ran for the owner since version was read.
// The compare and the write run as one script on the server.
func (r *RedisCache) Fill(ctx context.Context, ownerID string, basket *domain.Basket, version int64) (bool, error) {
	if basket == nil {
		return false, nil
	}

	payload, err := json.Marshal(basket)
	if err != nil {
		return false, fmt.Errorf("encode basket %s: %w", ownerID, err)
	}

	ttl := r.ttl
	if r.jitter > 0 {
		ttl += rand.N(r.jitter)
	}
	keys := []string{cacheKey(ownerID), versionKey(ownerID)}
	stored, err := fillScript.Run(ctx, r.client, keys, version, payload, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis fill %s: %w", cacheKey(ownerID), err)
	}
	return stored == 1, nil
}

// Delete drops the cached basket and advances the owner's version so that
// fills started before it are rejected.
func (r *RedisCache) Delete(ctx context.Context, ownerID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(ownerID))
		pipe.Expire(ctx, versionKey(ownerID), versionTTL)
		pipe.Del(ctx, cacheKey(ownerID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis del %s: %w", cacheKey(ownerID), err)
	}
	return nil
}

func cacheKey(ownerID string) string {
	return keyPrefix + ownerID
}

func versionKey(ownerID string) string {
	return versionPrefix + ownerID
}

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mpsingh12/imageshop/internal/domain"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	m     sync.Mutex
	err   error
	calls int
}

func (f *flakyStore) fail() error {
	f.m.Lock()
	defer f.m.Unlock()
	f.calls++
	return f.err
}

func (f *flakyStore) setErr(err error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.err = err
}

func (f *flakyStore) callCount() int {
	f.m.Lock()
	defer f.m.Unlock()
	return f.calls
}

func (f *flakyStore) Get(context.Context, string) (*domain.Basket, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return &domain.Basket{OwnerID: "u1", Items: []domain.Item{{ID: "img1"}}}, nil
}

func (f *flakyStore) Put(context.Context, *domain.Basket) error {
	return f.fail()
}

func (f *flakyStore) Delete(context.Context, *domain.Basket) error {
	return f.fail()
}

func testBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:                "test",
		ConsecutiveFailures: 2,
		OpenTimeout:         50 * time.Millisecond,
		HalfOpenRequests:    1,
	}
}

func TestBreakerStore_PassesThrough(t *testing.T) {
	next := &flakyStore{}
	sut := WithBreaker(next, testBreakerSettings(), nil)

	basket, err := sut.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", basket.OwnerID)
	assert.NoError(t, sut.Put(context.Background(), basket))
	assert.NoError(t, sut.Delete(context.Background(), basket))
	assert.Equal(t, 3, next.callCount())
}

func TestBreakerStore_OpensAfterFailures(t *testing.T) {
	next := &flakyStore{err: unavailable("get basket", errors.New("connection refused"))}
	sut := WithBreaker(next, testBreakerSettings(), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := sut.Get(ctx, "u1")
		require.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, sut.State())
	state, ok := sut.Healthy()
	assert.Equal(t, "open", state)
	assert.False(t, ok)

	// Open breaker fails fast without touching the backend
	_, err := sut.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, next.callCount())
}

func TestBreakerStore_HealthyFollowsState(t *testing.T) {
	next := &flakyStore{err: unavailable("get basket", errors.New("connection refused"))}
	sut := WithBreaker(next, testBreakerSettings(), nil)

	state, ok := sut.Healthy()
	assert.Equal(t, "closed", state)
	assert.True(t, ok)

	for i := 0; i < 2; i++ {
		_, _ = sut.Get(context.Background(), "u1")
	}
	state, ok = sut.Healthy()
	assert.Equal(t, "open", state)
	assert.False(t, ok)

	// Half-open lets a trial request through, so it counts as healthy.
	require.Eventually(t, func() bool {
		return sut.State() == gobreaker.StateHalfOpen
	}, time.Second, 10*time.Millisecond)
	state, ok = sut.Healthy()
	assert.Equal(t, "half-open", state)
	assert.True(t, ok)
}

func TestBreakerStore_NotFoundDoesNotTrip(t *testing.T) {
	next := &flakyStore{err: ErrNotFound}
	sut := WithBreaker(next, testBreakerSettings(), nil)

	for i := 0; i < 5; i++ {
		_, err := sut.Get(context.Background(), "u1")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, sut.State())
	assert.Equal(t, 5, next.callCount())
}

func TestBreakerStore_RecoversAfterTimeout(t *testing.T) {
	next := &flakyStore{err: unavailable("put basket", errors.New("timeout"))}
	sut := WithBreaker(next, testBreakerSettings(), nil)
	ctx := context.Background()
	basket := &domain.Basket{OwnerID: "u1"}

	for i := 0; i < 2; i++ {
		_ = sut.Put(ctx, basket)
	}
	require.Equal(t, gobreaker.StateOpen, sut.State())

	next.setErr(nil)
	require.Eventually(t, func() bool {
		return sut.Put(ctx, basket) == nil
	}, time.Second, 20*time.Millisecond)
	assert.Equal(t, gobreaker.StateClosed, sut.State())
}

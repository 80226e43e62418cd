package cache

import (
	"context"
	"testing"
	"time"

	"github.com/sawi/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*InMemoryIdempotencyStore, *time.Time) {
	store := NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	isNew, err := store.MarkProcessed(ctx, "event-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "event-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew, "second mark within TTL is a duplicate")

	*now = now.Add(2 * time.Hour)
	isNew, err = store.MarkProcessed(ctx, "event-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew, "expired mark can be taken again")
}

func TestInMemoryIdempotencyStore_IsProcessedAndForget(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "event-2")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "event-2", time.Hour)
	require.NoError(t, err)
	processed, _ = store.IsProcessed(ctx, "event-2")
	assert.True(t, processed)

	require.NoError(t, store.Forget(ctx, "event-2"))
	processed, _ = store.IsProcessed(ctx, "event-2")
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "short", time.Minute)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)
	require.Equal(t, 2, store.Size())

	*now = now.Add(10 * time.Minute)
	store.cleanup()
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestNewIdempotencyStore_FallsBackWithoutRedis(t *testing.T) {
	store := NewIdempotencyStore(context.Background(), config.RedisConfig{}, zap.NewNop())
	defer store.Close()

	_, ok := store.(*InMemoryIdempotencyStore)
	assert.True(t, ok)
}

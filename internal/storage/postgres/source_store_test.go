package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwatch/internal/domain"
	"chatwatch/internal/storage"
	pg "chatwatch/internal/storage/postgres"
)

func TestSourceStore_PutAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pg.NewSourceStore(pool)

	src := &domain.MonitoredSource{
		ID:       -1001234,
		Title:    "alpha calls",
		Type:     domain.SourceTypeChannel,
		Username: "alphacalls",
	}
	require.NoError(t, store.Put(ctx, src))

	got, err := store.Get(ctx, -1001234)
	require.NoError(t, err)
	assert.Equal(t, src.Title, got.Title)
	assert.Equal(t, src.Type, got.Type)

	// Put replaces in place.
	src.Title = "alpha calls v2"
	require.NoError(t, store.Put(ctx, src))
	got, err = store.Get(ctx, -1001234)
	require.NoError(t, err)
	assert.Equal(t, "alpha calls v2", got.Title)
}

func TestSourceStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pg.NewSourceStore(pool)

	_, err := store.Get(context.Background(), -999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSourceStore_AdvanceHighWater(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pg.NewSourceStore(pool)

	require.NoError(t, store.Put(ctx, &domain.MonitoredSource{ID: -100, Type: domain.SourceTypeGroup}))

	require.NoError(t, store.AdvanceHighWater(ctx, -100, 50, 5000))
	// Stale writes leave the mark untouched.
	require.NoError(t, store.AdvanceHighWater(ctx, -100, 40, 4000))

	got, err := store.Get(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.LastItemID)
	assert.Equal(t, int64(5000), got.LastItemAtMs)

	err = store.AdvanceHighWater(ctx, -999, 10, 1000)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSourceStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pg.NewSourceStore(pool)

	for _, id := range []int64{-300, -100, -200} {
		require.NoError(t, store.Put(ctx, &domain.MonitoredSource{ID: id, Type: domain.SourceTypeChannel}))
	}

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(-300), got[0].ID)
	assert.Equal(t, int64(-200), got[1].ID)
	assert.Equal(t, int64(-100), got[2].ID)
}

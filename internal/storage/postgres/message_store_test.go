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

func testMessage(sourceID, itemID, tsMs int64, text string) *domain.EnrichedMessage {
	return &domain.EnrichedMessage{
		RawMessage: domain.RawMessage{
			SourceID:    sourceID,
			ItemID:      itemID,
			SourceTitle: "test channel",
			SourceType:  domain.SourceTypeChannel,
			Author:      domain.Author{UserID: 7, Username: "caller"},
			Text:        text,
			TimestampMs: tsMs,
		},
		Enrichment: domain.Enrichment{
			Sentiment:    domain.SentimentNeutral,
			EnrichedAtMs: tsMs,
		},
	}
}

func TestMessageStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pg.NewMessageStore(pool)

	m := testMessage(-1001, 42, 1704067200000, "new token just launched")
	m.Enrichment.Addresses = []domain.Address{
		{Chain: domain.ChainEthereum, Address: "0x1234567890abcdef1234567890abcdef12345678"},
	}

	created, err := store.Upsert(ctx, m)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := store.Get(ctx, -1001, 42)
	require.NoError(t, err)
	assert.Equal(t, m.Text, got.Text)
	assert.Equal(t, m.Author.Username, got.Author.Username)
	assert.Equal(t, m.Enrichment.Addresses, got.Enrichment.Addresses)
}

func TestMessageStore_MediaRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pg.NewMessageStore(pool)

	m := testMessage(-1001, 43, 1704067200000, "chart attached")
	m.Media = &domain.Media{
		Type:     "photo",
		FileID:   "AgACAgIAAx0",
		FileSize: 48213,
		MimeType: "image/jpeg",
		Caption:  "1h candles",
	}
	_, err := store.Upsert(ctx, m)
	require.NoError(t, err)

	got, err := store.Get(ctx, -1001, 43)
	require.NoError(t, err)
	require.NotNil(t, got.Media)
	assert.Equal(t, m.Media, got.Media)

	// Text-only messages keep a nil media field.
	_, err = store.Upsert(ctx, testMessage(-1001, 44, 1704067201000, "no attachment"))
	require.NoError(t, err)
	got, err = store.Get(ctx, -1001, 44)
	require.NoError(t, err)
	assert.Nil(t, got.Media)
}

func TestMessageStore_UpsertOverwrite(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pg.NewMessageStore(pool)

	created, err := store.Upsert(ctx, testMessage(-1001, 1, 1000, "first"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Upsert(ctx, testMessage(-1001, 1, 1000, "second"))
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.Get(ctx, -1001, 1)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Text)
}

func TestMessageStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pg.NewMessageStore(pool)

	_, err := store.Get(context.Background(), -1, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMessageStore_SearchRanked(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pg.NewMessageStore(pool)

	seed := []*domain.EnrichedMessage{
		testMessage(-1001, 1, 1000, "solana token launch incoming"),
		testMessage(-1001, 2, 2000, "random chatter about weather"),
		testMessage(-1002, 3, 3000, "another solana launch, solana season"),
	}
	for _, m := range seed {
		_, err := store.Upsert(ctx, m)
		require.NoError(t, err)
	}

	hits, err := store.Search(ctx, storage.SearchQuery{Text: "solana launch", Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Greater(t, h.Score, 0.0)
	}

	hits, err = store.Search(ctx, storage.SearchQuery{Text: "solana", SourceID: -1002, Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(3), hits[0].Message.ItemID)

	hits, err = store.Search(ctx, storage.SearchQuery{
		Text:    "solana",
		BeginMs: 500,
		EndMs:   1500,
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].Message.ItemID)
}

func TestMessageStore_SearchBySentiment(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pg.NewMessageStore(pool)

	bullish := testMessage(-1001, 1, 1000, "token going to the moon")
	bullish.Enrichment.Sentiment = domain.SentimentPositive
	bearish := testMessage(-1001, 2, 2000, "token rugged, total dump")
	bearish.Enrichment.Sentiment = domain.SentimentNegative
	for _, m := range []*domain.EnrichedMessage{bullish, bearish} {
		_, err := store.Upsert(ctx, m)
		require.NoError(t, err)
	}

	hits, err := store.Search(ctx, storage.SearchQuery{Text: "token", Sentiment: domain.SentimentPositive, Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].Message.ItemID)
}

func TestMessageStore_Latest(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pg.NewMessageStore(pool)

	for _, m := range []*domain.EnrichedMessage{
		testMessage(-1001, 1, 1000, "oldest"),
		testMessage(-1001, 2, 3000, "newest"),
		testMessage(-1002, 3, 2000, "middle"),
	} {
		_, err := store.Upsert(ctx, m)
		require.NoError(t, err)
	}

	got, err := store.Latest(ctx, storage.LatestQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ItemID)
	assert.Equal(t, int64(3), got[1].ItemID)

	got, err = store.Latest(ctx, storage.LatestQuery{SourceID: -1002, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ItemID)
}

func TestMessageStore_Delete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pg.NewMessageStore(pool)

	_, err := store.Upsert(ctx, testMessage(-1001, 1, 1000, "doomed"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, -1001, 1))
	_, err = store.Get(ctx, -1001, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting again is not an error.
	require.NoError(t, store.Delete(ctx, -1001, 1))
}

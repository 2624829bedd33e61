package memory

import (
	"context"
	"errors"
	"testing"

	"chatwatch/internal/domain"
	"chatwatch/internal/storage"
)

func msg(sourceID, itemID, tsMs int64, text string) *domain.EnrichedMessage {
	return &domain.EnrichedMessage{
		RawMessage: domain.RawMessage{
			SourceID:    sourceID,
			ItemID:      itemID,
			Text:        text,
			TimestampMs: tsMs,
		},
		Enrichment: domain.Enrichment{Sentiment: domain.SentimentNeutral},
	}
}

func TestMessageStore_UpsertCreatesThenRefreshes(t *testing.T) {
	store := NewMessageStore()
	ctx := context.Background()

	created, err := store.Upsert(ctx, msg(-100, 42, 1000, "first pass"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if !created {
		t.Error("Expected created=true on first upsert")
	}

	created, err = store.Upsert(ctx, msg(-100, 42, 1000, "second pass"))
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}
	if created {
		t.Error("Expected created=false on overwrite")
	}

	got, err := store.Get(ctx, -100, 42)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Text != "second pass" {
		t.Errorf("Text mismatch: got %q, want %q", got.Text, "second pass")
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 document, got %d", store.Len())
	}
}

func TestMessageStore_GetNotFound(t *testing.T) {
	store := NewMessageStore()
	ctx := context.Background()

	_, err := store.Get(ctx, -1, 1)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMessageStore_SearchFilters(t *testing.T) {
	store := NewMessageStore()
	ctx := context.Background()

	seed := []*domain.EnrichedMessage{
		msg(-100, 1, 1000, "pepe token launch"),
		msg(-100, 2, 2000, "pepe pepe moon"),
		msg(-200, 3, 3000, "unrelated chatter"),
	}
	for _, m := range seed {
		if _, err := store.Upsert(ctx, m); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	hits, err := store.Search(ctx, storage.SearchQuery{Text: "pepe", Limit: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Expected 2 hits, got %d", len(hits))
	}
	// The double mention ranks first.
	if hits[0].Message.ItemID != 2 {
		t.Errorf("Expected item 2 first, got %d", hits[0].Message.ItemID)
	}

	hits, err = store.Search(ctx, storage.SearchQuery{Text: "pepe", SourceID: -200})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("Expected 0 hits for source -200, got %d", len(hits))
	}

	hits, err = store.Search(ctx, storage.SearchQuery{BeginMs: 2000, EndMs: 3000})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("Expected 2 hits in time range, got %d", len(hits))
	}
}

func TestMessageStore_LatestOrdersByTimestamp(t *testing.T) {
	store := NewMessageStore()
	ctx := context.Background()

	for _, m := range []*domain.EnrichedMessage{
		msg(-100, 1, 1000, "oldest"),
		msg(-100, 2, 3000, "newest"),
		msg(-200, 3, 2000, "middle"),
	} {
		if _, err := store.Upsert(ctx, m); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	got, err := store.Latest(ctx, storage.LatestQuery{Limit: 2})
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(got))
	}
	if got[0].ItemID != 2 || got[1].ItemID != 3 {
		t.Errorf("Wrong order: got items %d, %d", got[0].ItemID, got[1].ItemID)
	}

	got, err = store.Latest(ctx, storage.LatestQuery{SourceID: -200, Limit: 10})
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if len(got) != 1 || got[0].ItemID != 3 {
		t.Errorf("Expected only item 3 for source -200, got %v", got)
	}
}

func TestMessageStore_DeleteIsIdempotent(t *testing.T) {
	store := NewMessageStore()
	ctx := context.Background()

	if _, err := store.Upsert(ctx, msg(-100, 1, 1000, "doomed")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Delete(ctx, -100, 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, -100, 1); err != nil {
		t.Fatalf("Second delete failed: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Expected empty store, got %d documents", store.Len())
	}
}

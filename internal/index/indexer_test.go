package index

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"chatwatch/internal/domain"
	"chatwatch/internal/enrich"
	"chatwatch/internal/storage"
	"chatwatch/internal/storage/memory"
)

func testPipeline() *enrich.Pipeline {
	return enrich.NewPipeline(enrich.Options{
		Now: func() time.Time { return time.UnixMilli(1704067200000) },
	})
}

func raw(sourceID, itemID int64, text string) *domain.RawMessage {
	return &domain.RawMessage{
		SourceID:    sourceID,
		ItemID:      itemID,
		Text:        text,
		TimestampMs: 1704067100000,
	}
}

func TestIndexer_IndexCreatesAndRefreshes(t *testing.T) {
	msgs := memory.NewMessageStore()
	activity := memory.NewActivityStore()
	ix := New(Options{Pipeline: testPipeline(), Messages: msgs, Activity: activity})
	ctx := context.Background()

	created, err := ix.Index(ctx, raw(-100, 1, "pump it"), domain.IngestPathPush)
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if !created {
		t.Error("Expected created=true on first index")
	}

	created, err = ix.Index(ctx, raw(-100, 1, "pump it (edited)"), domain.IngestPathResync)
	if err != nil {
		t.Fatalf("Second index failed: %v", err)
	}
	if created {
		t.Error("Expected created=false on overwrite")
	}

	got, err := msgs.Get(ctx, -100, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Text != "pump it (edited)" {
		t.Errorf("Last write did not win: %q", got.Text)
	}
	if got.Enrichment.Sentiment != domain.SentimentPositive {
		t.Errorf("Enrichment missing: sentiment %s", got.Enrichment.Sentiment)
	}

	rows := activity.All()
	if len(rows) != 2 {
		t.Fatalf("Expected 2 journal rows, got %d", len(rows))
	}
	if rows[0].Outcome != domain.OutcomeIndexed || rows[0].Path != domain.IngestPathPush {
		t.Errorf("First row mismatch: %+v", rows[0])
	}
	if rows[1].Outcome != domain.OutcomeRefreshed || rows[1].Path != domain.IngestPathResync {
		t.Errorf("Second row mismatch: %+v", rows[1])
	}
}

// flakyStore fails Upsert a fixed number of times before delegating.
type flakyStore struct {
	storage.MessageStore
	failures atomic.Int64
	calls    atomic.Int64
}

func (f *flakyStore) Upsert(ctx context.Context, m *domain.EnrichedMessage) (bool, error) {
	if f.calls.Add(1) <= f.failures.Load() {
		return false, storage.ErrUnavailable
	}
	return f.MessageStore.Upsert(ctx, m)
}

func TestIndexer_RetriesTransientFailures(t *testing.T) {
	inner := memory.NewMessageStore()
	store := &flakyStore{MessageStore: inner}
	store.failures.Store(2)

	ix := New(Options{
		Pipeline:   testPipeline(),
		Messages:   store,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})

	created, err := ix.Index(context.Background(), raw(-100, 1, "hello"), domain.IngestPathPush)
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if !created {
		t.Error("Expected created=true")
	}
	if store.calls.Load() != 3 {
		t.Errorf("Expected 3 upsert calls, got %d", store.calls.Load())
	}
}

func TestIndexer_PersistentFailureJournaled(t *testing.T) {
	inner := memory.NewMessageStore()
	store := &flakyStore{MessageStore: inner}
	store.failures.Store(100)
	activity := memory.NewActivityStore()

	ix := New(Options{
		Pipeline:   testPipeline(),
		Messages:   store,
		Activity:   activity,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})

	_, err := ix.Index(context.Background(), raw(-100, 9, "doomed"), domain.IngestPathPoll)
	if !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}

	failures, err := activity.RecentFailures(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentFailures failed: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("Expected 1 failure row, got %d", len(failures))
	}
	if failures[0].SourceID != -100 || failures[0].ItemID != 9 {
		t.Errorf("Failure row ids mismatch: %+v", failures[0])
	}
	if failures[0].Reason == "" {
		t.Error("Expected failure reason to be recorded")
	}
}

func TestIndexer_Delete(t *testing.T) {
	msgs := memory.NewMessageStore()
	ix := New(Options{Pipeline: testPipeline(), Messages: msgs})
	ctx := context.Background()

	if _, err := ix.Index(ctx, raw(-100, 1, "bye"), domain.IngestPathPush); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if err := ix.Delete(ctx, -100, 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := msgs.Get(ctx, -100, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

package memory

import (
	"context"
	"errors"
	"testing"

	"chatwatch/internal/domain"
	"chatwatch/internal/storage"
)

func TestSourceStore_PutAndGet(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()

	src := &domain.MonitoredSource{
		ID:       -1001234,
		Title:    "alpha calls",
		Type:     domain.SourceTypeChannel,
		Username: "alphacalls",
	}
	if err := store.Put(ctx, src); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, -1001234)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != src.Title {
		t.Errorf("Title mismatch: got %s, want %s", got.Title, src.Title)
	}
}

func TestSourceStore_NotFound(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()

	_, err := store.Get(ctx, -999)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	err = store.AdvanceHighWater(ctx, -999, 10, 1000)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSourceStore_AdvanceHighWaterMonotonic(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()

	src := &domain.MonitoredSource{ID: -100, Title: "t", Type: domain.SourceTypeGroup}
	if err := store.Put(ctx, src); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.AdvanceHighWater(ctx, -100, 50, 5000); err != nil {
		t.Fatalf("AdvanceHighWater failed: %v", err)
	}
	// A stale mark must not lower the stored one.
	if err := store.AdvanceHighWater(ctx, -100, 40, 4000); err != nil {
		t.Fatalf("AdvanceHighWater failed: %v", err)
	}

	got, err := store.Get(ctx, -100)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.LastItemID != 50 {
		t.Errorf("LastItemID mismatch: got %d, want 50", got.LastItemID)
	}
	if got.LastItemAtMs != 5000 {
		t.Errorf("LastItemAtMs mismatch: got %d, want 5000", got.LastItemAtMs)
	}
}

func TestSourceStore_ListOrdered(t *testing.T) {
	store := NewSourceStore()
	ctx := context.Background()

	for _, id := range []int64{-300, -100, -200} {
		if err := store.Put(ctx, &domain.MonitoredSource{ID: id, Type: domain.SourceTypeChannel}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	got, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 sources, got %d", len(got))
	}
	if got[0].ID != -300 || got[1].ID != -200 || got[2].ID != -100 {
		t.Errorf("Wrong order: %d, %d, %d", got[0].ID, got[1].ID, got[2].ID)
	}
}

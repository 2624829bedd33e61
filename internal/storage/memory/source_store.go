package memory

import (
	"context"
	"sort"
	"sync"

	"chatwatch/internal/domain"
	"chatwatch/internal/storage"
)

// SourceStore is an in-memory SourceStore for tests and local runs.
type SourceStore struct {
	mu      sync.RWMutex
	sources map[int64]*domain.MonitoredSource
}

var _ storage.SourceStore = (*SourceStore)(nil)

func NewSourceStore() *SourceStore {
	return &SourceStore{
		sources: make(map[int64]*domain.MonitoredSource),
	}
}

func (s *SourceStore) Put(_ context.Context, src *domain.MonitoredSource) error {
	if src == nil || src.ID == 0 {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *src
	s.sources[src.ID] = &cp
	return nil
}

func (s *SourceStore) Get(_ context.Context, sourceID int64) (*domain.MonitoredSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.sources[sourceID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *src
	return &cp, nil
}

func (s *SourceStore) List(_ context.Context) ([]domain.MonitoredSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.MonitoredSource, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, *src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *SourceStore) AdvanceHighWater(_ context.Context, sourceID, itemID, itemAtMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[sourceID]
	if !ok {
		return storage.ErrNotFound
	}
	if itemID <= src.LastItemID {
		return nil
	}
	src.LastItemID = itemID
	src.LastItemAtMs = itemAtMs
	return nil
}

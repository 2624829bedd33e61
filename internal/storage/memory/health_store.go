package memory

import (
	"context"
	"sync"

	"chatwatch/internal/domain"
	"chatwatch/internal/storage"
)

// HealthStore is an in-memory HealthStore for tests and local runs.
type HealthStore struct {
	mu   sync.RWMutex
	snap *domain.HealthSnapshot
}

var _ storage.HealthStore = (*HealthStore)(nil)

func NewHealthStore() *HealthStore {
	return &HealthStore{}
}

func (s *HealthStore) Write(_ context.Context, snap *domain.HealthSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *snap
	s.snap = &cp
	return nil
}

func (s *HealthStore) Read(_ context.Context) (*domain.HealthSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return nil, storage.ErrNotFound
	}
	cp := *s.snap
	return &cp, nil
}

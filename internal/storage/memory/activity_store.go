package memory

import (
	"context"
	"sync"

	"chatwatch/internal/domain"
	"chatwatch/internal/storage"
)

// ActivityStore is an in-memory ActivityStore for tests and local runs.
type ActivityStore struct {
	mu   sync.RWMutex
	rows []domain.IngestActivity
}

var _ storage.ActivityStore = (*ActivityStore)(nil)

func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

func (s *ActivityStore) InsertBulk(_ context.Context, rows []domain.IngestActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = append(s.rows, rows...)
	return nil
}

func (s *ActivityStore) RecentFailures(_ context.Context, limit int) ([]domain.IngestActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.IngestActivity
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].Outcome != domain.OutcomeFailed {
			continue
		}
		out = append(out, s.rows[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns every journal row in insertion order. Test helper.
func (s *ActivityStore) All() []domain.IngestActivity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.IngestActivity(nil), s.rows...)
}

package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"chatwatch/internal/domain"
	"chatwatch/internal/storage"
)

// MessageStore is an in-memory MessageStore for tests and local runs.
type MessageStore struct {
	mu   sync.RWMutex
	docs map[string]*domain.EnrichedMessage
}

var _ storage.MessageStore = (*MessageStore)(nil)

func NewMessageStore() *MessageStore {
	return &MessageStore{
		docs: make(map[string]*domain.EnrichedMessage),
	}
}

func (s *MessageStore) Upsert(_ context.Context, m *domain.EnrichedMessage) (bool, error) {
	if m == nil {
		return false, storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := m.DedupKey()
	_, existed := s.docs[key]
	cp := *m
	s.docs[key] = &cp
	return !existed, nil
}

func (s *MessageStore) Get(_ context.Context, sourceID, itemID int64) (*domain.EnrichedMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := (&domain.RawMessage{SourceID: sourceID, ItemID: itemID}).DedupKey()
	doc, ok := s.docs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *MessageStore) Search(_ context.Context, q storage.SearchQuery) ([]storage.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(q.Text))
	var hits []storage.SearchHit
	for _, doc := range s.docs {
		if q.SourceID != 0 && doc.SourceID != q.SourceID {
			continue
		}
		if q.Sentiment != "" && doc.Enrichment.Sentiment != q.Sentiment {
			continue
		}
		if q.BeginMs != 0 && doc.TimestampMs < q.BeginMs {
			continue
		}
		if q.EndMs != 0 && doc.TimestampMs > q.EndMs {
			continue
		}
		score := matchScore(doc.Text, terms)
		if len(terms) > 0 && score == 0 {
			continue
		}
		cp := *doc
		hits = append(hits, storage.SearchHit{Message: cp, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Message.TimestampMs > hits[j].Message.TimestampMs
	})
	if q.Offset > 0 {
		if q.Offset >= len(hits) {
			return nil, nil
		}
		hits = hits[q.Offset:]
	}
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// matchScore counts term occurrences. Crude next to a real ranker, but
// stable enough for tests.
func matchScore(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 1
	}
	lower := strings.ToLower(text)
	var score float64
	for _, t := range terms {
		score += float64(strings.Count(lower, t))
	}
	return score
}

func (s *MessageStore) Latest(_ context.Context, q storage.LatestQuery) ([]domain.EnrichedMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.EnrichedMessage
	for _, doc := range s.docs {
		if q.SourceID != 0 && doc.SourceID != q.SourceID {
			continue
		}
		if q.BeginMs != 0 && doc.TimestampMs < q.BeginMs {
			continue
		}
		out = append(out, *doc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TimestampMs > out[j].TimestampMs
	})
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MessageStore) Delete(_ context.Context, sourceID, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := (&domain.RawMessage{SourceID: sourceID, ItemID: itemID}).DedupKey()
	delete(s.docs, key)
	return nil
}

// Len reports the number of stored documents. Test helper.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

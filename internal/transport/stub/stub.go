// Package stub provides in-memory transport implementations for tests.
package stub

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"chatwatch/internal/domain"
	"chatwatch/internal/transport"
)

// Stream is a hand-driven PushStream. Tests push events in and flip the
// connected flag to simulate drops.
type Stream struct {
	events    chan transport.Event
	connected atomic.Bool
	closeOnce sync.Once
}

var _ transport.PushStream = (*Stream)(nil)

// NewStream creates a connected stub stream.
func NewStream() *Stream {
	s := &Stream{events: make(chan transport.Event, 100)}
	s.connected.Store(true)
	return s
}

func (s *Stream) Events() <-chan transport.Event {
	return s.events
}

func (s *Stream) Connected() bool {
	return s.connected.Load()
}

func (s *Stream) Close() error {
	s.closeOnce.Do(func() { close(s.events) })
	return nil
}

// Push delivers an event as if it arrived from the gateway.
func (s *Stream) Push(ev transport.Event) {
	s.events <- ev
}

// PushMessage delivers a message event.
func (s *Stream) PushMessage(m *domain.RawMessage) {
	s.Push(transport.Event{
		Type:     transport.EventMessage,
		Message:  m,
		SourceID: m.SourceID,
		ItemID:   m.ItemID,
	})
}

// SetConnected flips the connection state reported to the watchdog.
func (s *Stream) SetConnected(v bool) {
	s.connected.Store(v)
}

// History is a fixed in-memory History. Messages can be added unordered;
// fetches sort ascending like the real gateway.
type History struct {
	mu       sync.Mutex
	messages map[int64][]domain.RawMessage
	sources  map[int64]domain.MonitoredSource

	// Err, when set, fails every fetch. Simulates gateway outage.
	Err error

	fetchCalls atomic.Int64
}

var _ transport.History = (*History)(nil)

func NewHistory() *History {
	return &History{
		messages: make(map[int64][]domain.RawMessage),
		sources:  make(map[int64]domain.MonitoredSource),
	}
}

// Add seeds messages for a source.
func (h *History) Add(msgs ...domain.RawMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range msgs {
		h.messages[m.SourceID] = append(h.messages[m.SourceID], m)
	}
}

// AddSource seeds source metadata.
func (h *History) AddSource(src domain.MonitoredSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sources[src.ID] = src
}

// FetchCalls reports how many fetches ran. Test helper.
func (h *History) FetchCalls() int64 {
	return h.fetchCalls.Load()
}

func (h *History) FetchSince(_ context.Context, sourceID, afterItemID int64, limit int) ([]domain.RawMessage, error) {
	h.fetchCalls.Add(1)
	if h.Err != nil {
		return nil, h.Err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var out []domain.RawMessage
	for _, m := range h.messages[sourceID] {
		if m.ItemID > afterItemID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *History) FetchLatest(_ context.Context, sourceID int64, limit int) ([]domain.RawMessage, error) {
	h.fetchCalls.Add(1)
	if h.Err != nil {
		return nil, h.Err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	out := append([]domain.RawMessage(nil), h.messages[sourceID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (h *History) SourceInfo(_ context.Context, sourceID int64) (*domain.MonitoredSource, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	src, ok := h.sources[sourceID]
	if !ok {
		return nil, fmt.Errorf("unknown source %d", sourceID)
	}
	cp := src
	return &cp, nil
}

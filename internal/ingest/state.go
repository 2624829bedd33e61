// Package ingest keeps the search index in step with the upstream chat
// platform. Live events arrive over the push stream; a watchdog detects
// stalls and triggers bounded resyncs; an independent poller sweeps for
// anything both of those missed; a recorder publishes the resulting health.
package ingest

import (
	"sync"
	"time"

	"chatwatch/internal/domain"
)

// Tracker is the shared liveness state for all ingest components. All
// methods take explicit times so timing contracts stay testable.
type Tracker struct {
	mu sync.Mutex

	startedAt   time.Time
	lastEventAt time.Time
	lastPollAt  time.Time

	lastResyncAt     time.Time
	lastResyncStatus domain.ResyncStatus
	lastResyncReason string

	// perSourceResyncAt rate-limits resyncs per source.
	perSourceResyncAt map[int64]time.Time

	// inFlight guards against concurrent resyncs of the same source.
	inFlight map[int64]bool
}

func NewTracker(now time.Time) *Tracker {
	return &Tracker{
		startedAt:         now,
		perSourceResyncAt: make(map[int64]time.Time),
		inFlight:          make(map[int64]bool),
	}
}

// RecordEvent notes a push stream delivery.
func (t *Tracker) RecordEvent(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now.After(t.lastEventAt) {
		t.lastEventAt = now
	}
}

// LastEventAge reports time since the last push event. Before any event
// arrives, age counts from process start.
func (t *Tracker) LastEventAge(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	since := t.lastEventAt
	if since.IsZero() {
		since = t.startedAt
	}
	return now.Sub(since)
}

// LastEventAt returns the last push event time, zero if none yet.
func (t *Tracker) LastEventAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastEventAt
}

// Resync skip reasons.
const (
	SkipInFlight    = "in_flight"
	SkipRateLimited = "rate_limited"
)

// TryBeginResync claims the resync slot for a source. Returns ok=false
// with a skip reason when a resync is already running or ran more recently
// than minInterval. The caller must call EndResync when ok.
func (t *Tracker) TryBeginResync(sourceID int64, now time.Time, minInterval time.Duration) (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.inFlight[sourceID] {
		return false, SkipInFlight
	}
	if last, ok := t.perSourceResyncAt[sourceID]; ok && now.Sub(last) < minInterval {
		return false, SkipRateLimited
	}

	t.inFlight[sourceID] = true
	t.perSourceResyncAt[sourceID] = now
	return true, ""
}

// EndResync releases the slot and records the outcome for health.
func (t *Tracker) EndResync(sourceID int64, now time.Time, status domain.ResyncStatus, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.inFlight, sourceID)
	t.lastResyncAt = now
	t.lastResyncStatus = status
	t.lastResyncReason = reason
}

// RecordResyncSkipped notes a skipped trigger without touching the
// in-flight set.
func (t *Tracker) RecordResyncSkipped(now time.Time, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastResyncAt = now
	t.lastResyncStatus = domain.ResyncStatusSkipped
	t.lastResyncReason = reason
}

// LastResync returns the most recent resync outcome.
func (t *Tracker) LastResync() (at time.Time, status domain.ResyncStatus, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastResyncAt, t.lastResyncStatus, t.lastResyncReason
}

// RecordPoll notes a completed poll cycle.
func (t *Tracker) RecordPoll(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastPollAt = now
}

// LastPollAt returns the last completed poll time, zero if none yet.
func (t *Tracker) LastPollAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPollAt
}

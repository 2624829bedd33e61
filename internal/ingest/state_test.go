package ingest

import (
	"testing"
	"time"

	"chatwatch/internal/domain"
)

var trackerBase = time.UnixMilli(1704067200000)

func TestTrackerLastEventAge(t *testing.T) {
	tr := NewTracker(trackerBase)

	// Before any event, age counts from process start.
	if got := tr.LastEventAge(trackerBase.Add(10 * time.Minute)); got != 10*time.Minute {
		t.Fatalf("age before first event = %v, want 10m", got)
	}
	if !tr.LastEventAt().IsZero() {
		t.Fatalf("LastEventAt before first event = %v, want zero", tr.LastEventAt())
	}

	tr.RecordEvent(trackerBase.Add(15 * time.Minute))
	if got := tr.LastEventAge(trackerBase.Add(20 * time.Minute)); got != 5*time.Minute {
		t.Fatalf("age after event = %v, want 5m", got)
	}

	// Out-of-order record must not move the clock backwards.
	tr.RecordEvent(trackerBase.Add(12 * time.Minute))
	if got := tr.LastEventAt(); !got.Equal(trackerBase.Add(15 * time.Minute)) {
		t.Fatalf("LastEventAt = %v, want %v", got, trackerBase.Add(15*time.Minute))
	}
}

func TestTrackerTryBeginResync(t *testing.T) {
	tr := NewTracker(trackerBase)
	minInterval := 5 * time.Minute

	ok, _ := tr.TryBeginResync(7, trackerBase, minInterval)
	if !ok {
		t.Fatal("first TryBeginResync refused")
	}

	// Same source while in flight.
	if ok, reason := tr.TryBeginResync(7, trackerBase.Add(time.Second), minInterval); ok || reason != SkipInFlight {
		t.Fatalf("in-flight claim = (%v, %q), want (false, %q)", ok, reason, SkipInFlight)
	}

	// Other sources are independent.
	if ok, _ := tr.TryBeginResync(8, trackerBase, minInterval); !ok {
		t.Fatal("independent source refused while another is in flight")
	}

	tr.EndResync(7, trackerBase.Add(time.Minute), domain.ResyncStatusSuccess, "")

	// Released but still inside the rate window.
	if ok, reason := tr.TryBeginResync(7, trackerBase.Add(2*time.Minute), minInterval); ok || reason != SkipRateLimited {
		t.Fatalf("rate-limited claim = (%v, %q), want (false, %q)", ok, reason, SkipRateLimited)
	}

	// Past the window.
	if ok, _ := tr.TryBeginResync(7, trackerBase.Add(6*time.Minute), minInterval); !ok {
		t.Fatal("claim past rate window refused")
	}
}

func TestTrackerResyncOutcome(t *testing.T) {
	tr := NewTracker(trackerBase)

	tr.TryBeginResync(1, trackerBase, 0)
	tr.EndResync(1, trackerBase.Add(time.Minute), domain.ResyncStatusFailed, "gateway timeout")

	at, status, reason := tr.LastResync()
	if !at.Equal(trackerBase.Add(time.Minute)) || status != domain.ResyncStatusFailed || reason != "gateway timeout" {
		t.Fatalf("LastResync = (%v, %q, %q)", at, status, reason)
	}

	tr.RecordResyncSkipped(trackerBase.Add(2*time.Minute), SkipRateLimited)
	_, status, reason = tr.LastResync()
	if status != domain.ResyncStatusSkipped || reason != SkipRateLimited {
		t.Fatalf("after skip: LastResync = (%q, %q)", status, reason)
	}
}

func TestTrackerRecordPoll(t *testing.T) {
	tr := NewTracker(trackerBase)
	if !tr.LastPollAt().IsZero() {
		t.Fatal("LastPollAt before first poll should be zero")
	}
	tr.RecordPoll(trackerBase.Add(5 * time.Minute))
	if got := tr.LastPollAt(); !got.Equal(trackerBase.Add(5 * time.Minute)) {
		t.Fatalf("LastPollAt = %v", got)
	}
}

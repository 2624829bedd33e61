package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chatwatch/internal/observability"
)

// connState is the slice of the push stream the watchdog needs.
type connState interface {
	Connected() bool
}

// Resync trigger reasons.
const (
	ReasonStall        = "stall"
	ReasonDisconnected = "disconnected"
)

// Watchdog checks stream liveness on a fixed cadence and triggers resyncs
// when the stream is down or silent past the stall threshold.
type Watchdog struct {
	conn           connState
	tracker        *Tracker
	resyncer       *Resyncer
	stallThreshold time.Duration
	interval       time.Duration
	metrics        *observability.Metrics
	log            *zap.SugaredLogger
	now            func() time.Time
}

// NewWatchdog wires a Watchdog. Metrics may be nil.
func NewWatchdog(conn connState, tracker *Tracker, resyncer *Resyncer, stallThreshold, interval time.Duration, metrics *observability.Metrics, log *zap.SugaredLogger, now func() time.Time) *Watchdog {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if now == nil {
		now = time.Now
	}
	return &Watchdog{
		conn:           conn,
		tracker:        tracker,
		resyncer:       resyncer,
		stallThreshold: stallThreshold,
		interval:       interval,
		metrics:        metrics,
		log:            log,
		now:            now,
	}
}

// Run ticks until ctx is done.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx, w.now())
		}
	}
}

// Tick evaluates liveness once. Exposed for tests.
func (w *Watchdog) Tick(ctx context.Context, now time.Time) {
	connected := w.conn.Connected()
	age := w.tracker.LastEventAge(now)

	if w.metrics != nil {
		if connected {
			w.metrics.StreamConnected.Set(1)
		} else {
			w.metrics.StreamConnected.Set(0)
		}
		w.metrics.LastEventAge.Set(age.Seconds())
	}

	switch {
	case !connected:
		w.log.Warnw("stream disconnected, triggering resync", "last_event_age", age)
		w.resyncer.ResyncAll(ctx, ReasonDisconnected)
	case age > w.stallThreshold:
		w.log.Warnw("stream stalled, triggering resync",
			"last_event_age", age, "stall_threshold", w.stallThreshold)
		w.resyncer.ResyncAll(ctx, ReasonStall)
	}
}

package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chatwatch/internal/domain"
	"chatwatch/internal/storage"
)

// HealthRecorder derives an ingestion health snapshot on a fixed cadence
// and writes it through the health store. The snapshot is rebuilt wholesale
// every cycle so readers never see partial state.
type HealthRecorder struct {
	conn           connState
	tracker        *Tracker
	sources        storage.SourceStore
	health         storage.HealthStore
	stallThreshold time.Duration
	interval       time.Duration
	log            *zap.SugaredLogger
	now            func() time.Time
}

func NewHealthRecorder(conn connState, tracker *Tracker, sources storage.SourceStore, health storage.HealthStore, stallThreshold, interval time.Duration, log *zap.SugaredLogger, now func() time.Time) *HealthRecorder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if now == nil {
		now = time.Now
	}
	return &HealthRecorder{
		conn:           conn,
		tracker:        tracker,
		sources:        sources,
		health:         health,
		stallThreshold: stallThreshold,
		interval:       interval,
		log:            log,
		now:            now,
	}
}

// Run writes snapshots until ctx is done. One immediate write on start so
// a snapshot exists before the first full interval elapses.
func (h *HealthRecorder) Run(ctx context.Context) {
	h.record(ctx, h.now())

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.record(ctx, h.now())
		}
	}
}

func (h *HealthRecorder) record(ctx context.Context, now time.Time) {
	snap := h.Snapshot(ctx, now)
	if err := h.health.Write(ctx, snap); err != nil {
		h.log.Errorw("health snapshot write failed", "error", err)
	}
}

// Snapshot derives the current health state. Exposed for tests.
func (h *HealthRecorder) Snapshot(ctx context.Context, now time.Time) *domain.HealthSnapshot {
	connected := h.conn.Connected()
	age := h.tracker.LastEventAge(now)
	resyncAt, resyncStatus, resyncReason := h.tracker.LastResync()

	var monitored int
	if srcs, err := h.sources.List(ctx); err != nil {
		h.log.Warnw("health source listing failed", "error", err)
	} else {
		monitored = len(srcs)
	}

	snap := &domain.HealthSnapshot{
		Status:           h.status(connected, age, resyncStatus),
		Connected:        connected,
		MonitoredChats:   monitored,
		LastEventAgeSecs: int64(age.Seconds()),
		LastResyncStatus: resyncStatus,
		LastResyncReason: resyncReason,
		UpdatedAt:        now.UnixMilli(),
	}
	if at := h.tracker.LastEventAt(); !at.IsZero() {
		snap.LastEventAt = at.UnixMilli()
	}
	if !resyncAt.IsZero() {
		snap.LastResyncAt = resyncAt.UnixMilli()
	}
	if at := h.tracker.LastPollAt(); !at.IsZero() {
		snap.LastPollAt = at.UnixMilli()
	}
	return snap
}

func (h *HealthRecorder) status(connected bool, age time.Duration, resyncStatus domain.ResyncStatus) string {
	if !connected {
		return domain.HealthStatusStalled
	}
	if age <= h.stallThreshold {
		if resyncStatus == domain.ResyncStatusFailed {
			return domain.HealthStatusDegraded
		}
		return domain.HealthStatusHealthy
	}
	if age <= 2*h.stallThreshold {
		return domain.HealthStatusDegraded
	}
	return domain.HealthStatusStalled
}

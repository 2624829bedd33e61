package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chatwatch/internal/domain"
	"chatwatch/internal/index"
	"chatwatch/internal/observability"
	"chatwatch/internal/storage"
	"chatwatch/internal/transport"
)

// Resyncer replays missed messages for a source since its high-water mark.
// One resync per source at a time; triggers closer together than
// MinInterval are skipped.
type Resyncer struct {
	history     transport.History
	sources     storage.SourceStore
	indexer     *index.Indexer
	tracker     *Tracker
	batchLimit  int
	minInterval time.Duration
	metrics     *observability.Metrics
	log         *zap.SugaredLogger
	now         func() time.Time
}

// NewResyncer wires a Resyncer. Metrics may be nil.
func NewResyncer(history transport.History, sources storage.SourceStore, indexer *index.Indexer, tracker *Tracker, batchLimit int, minInterval time.Duration, metrics *observability.Metrics, log *zap.SugaredLogger, now func() time.Time) *Resyncer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if now == nil {
		now = time.Now
	}
	return &Resyncer{
		history:     history,
		sources:     sources,
		indexer:     indexer,
		tracker:     tracker,
		batchLimit:  batchLimit,
		minInterval: minInterval,
		metrics:     metrics,
		log:         log,
		now:         now,
	}
}

// ResyncAll resyncs every monitored source. Individual source failures do
// not stop the pass.
func (r *Resyncer) ResyncAll(ctx context.Context, reason string) {
	srcs, err := r.sources.List(ctx)
	if err != nil {
		r.log.Errorw("resync source listing failed", "error", err)
		return
	}
	for _, src := range srcs {
		if ctx.Err() != nil {
			return
		}
		r.ResyncSource(ctx, src.ID, reason)
	}
}

// ResyncSource replays one source. Returns the number of fetched items.
func (r *Resyncer) ResyncSource(ctx context.Context, sourceID int64, reason string) int {
	now := r.now()

	ok, skip := r.tracker.TryBeginResync(sourceID, now, r.minInterval)
	if !ok {
		r.log.Debugw("resync skipped", "source_id", sourceID, "reason", skip)
		if r.metrics != nil {
			r.metrics.ResyncsSkipped.WithLabelValues(skip).Inc()
		}
		r.tracker.RecordResyncSkipped(now, skip)
		return 0
	}

	if r.metrics != nil {
		r.metrics.ResyncsTriggered.WithLabelValues(reason).Inc()
	}
	r.log.Infow("resync started", "source_id", sourceID, "reason", reason)

	fetched, err := r.resync(ctx, sourceID)
	if err != nil {
		r.log.Errorw("resync failed", "source_id", sourceID, "error", err)
		if r.metrics != nil {
			r.metrics.ResyncFailures.Inc()
		}
		r.tracker.EndResync(sourceID, r.now(), domain.ResyncStatusFailed, err.Error())
		return fetched
	}

	r.log.Infow("resync finished", "source_id", sourceID, "fetched", fetched)
	r.tracker.EndResync(sourceID, r.now(), domain.ResyncStatusSuccess, "")
	if r.metrics != nil {
		r.metrics.ResyncLatency.Observe(r.now().Sub(now).Seconds())
	}
	return fetched
}

func (r *Resyncer) resync(ctx context.Context, sourceID int64) (int, error) {
	src, err := r.sources.Get(ctx, sourceID)
	if err != nil {
		return 0, fmt.Errorf("load source: %w", err)
	}

	msgs, err := r.history.FetchSince(ctx, sourceID, src.LastItemID, r.batchLimit)
	if err != nil {
		return 0, fmt.Errorf("fetch since %d: %w", src.LastItemID, err)
	}

	for i := range msgs {
		m := &msgs[i]
		if r.metrics != nil {
			r.metrics.EventsReceived.WithLabelValues(string(domain.IngestPathResync)).Inc()
		}
		// Index failures are journaled inside the indexer; the mark still
		// advances so one poisoned item cannot wedge the source.
		r.indexer.Index(ctx, m, domain.IngestPathResync)
		if err := r.sources.AdvanceHighWater(ctx, sourceID, m.ItemID, m.TimestampMs); err != nil {
			return len(msgs), fmt.Errorf("advance high water: %w", err)
		}
	}
	return len(msgs), nil
}

package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chatwatch/internal/domain"
	"chatwatch/internal/index"
	"chatwatch/internal/observability"
	"chatwatch/internal/storage"
	"chatwatch/internal/transport"
)

// Listener consumes the push stream. A single goroutine drains the event
// channel and indexes synchronously, which preserves per-source ordering
// without any further coordination.
type Listener struct {
	stream  transport.PushStream
	indexer *index.Indexer
	sources storage.SourceStore
	tracker *Tracker
	metrics *observability.Metrics
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewListener wires a Listener. Metrics may be nil.
func NewListener(stream transport.PushStream, indexer *index.Indexer, sources storage.SourceStore, tracker *Tracker, metrics *observability.Metrics, log *zap.SugaredLogger, now func() time.Time) *Listener {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if now == nil {
		now = time.Now
	}
	return &Listener{
		stream:  stream,
		indexer: indexer,
		sources: sources,
		tracker: tracker,
		metrics: metrics,
		log:     log,
		now:     now,
	}
}

// Run drains the stream until ctx is done or the stream closes.
func (l *Listener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.stream.Events():
			if !ok {
				l.log.Info("push stream closed")
				return
			}
			l.handle(ctx, ev)
		}
	}
}

func (l *Listener) handle(ctx context.Context, ev transport.Event) {
	// Any frame from the gateway proves the stream is alive.
	l.tracker.RecordEvent(l.now())

	switch ev.Type {
	case transport.EventMessage:
		if ev.Message == nil {
			return
		}
		if l.metrics != nil {
			l.metrics.EventsReceived.WithLabelValues(string(domain.IngestPathPush)).Inc()
		}
		if _, err := l.indexer.Index(ctx, ev.Message, domain.IngestPathPush); err != nil {
			// Already journaled and reported by the indexer. The mark
			// still advances; the failure record is the recovery handle.
			l.log.Debugw("push index failed", "source_id", ev.SourceID, "item_id", ev.ItemID)
		}
		if err := l.sources.AdvanceHighWater(ctx, ev.SourceID, ev.ItemID, ev.Message.TimestampMs); err != nil {
			l.log.Warnw("high-water advance failed",
				"source_id", ev.SourceID, "item_id", ev.ItemID, "error", err)
		}
	case transport.EventDelete:
		if err := l.indexer.Delete(ctx, ev.SourceID, ev.ItemID); err != nil {
			l.log.Warnw("delete failed",
				"source_id", ev.SourceID, "item_id", ev.ItemID, "error", err)
		}
	}
}

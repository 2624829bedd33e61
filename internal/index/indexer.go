// Package index writes enriched messages into the search store and keeps
// the activity journal. All three ingest paths funnel through here, so the
// dedup and last-write-wins guarantees live in one place.
package index

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chatwatch/internal/domain"
	"chatwatch/internal/enrich"
	"chatwatch/internal/observability"
	"chatwatch/internal/report"
	"chatwatch/internal/storage"
)

// Default configuration values.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
)

// Options configures an Indexer.
type Options struct {
	Pipeline *enrich.Pipeline
	Messages storage.MessageStore

	// Activity is optional; nil disables the journal.
	Activity storage.ActivityStore

	Metrics  *observability.Metrics
	Reporter report.Reporter
	Logger   *zap.SugaredLogger

	MaxRetries int
	RetryDelay time.Duration
	MaxDelay   time.Duration

	// Now is overridable for tests.
	Now func() time.Time
}

// Indexer is safe for concurrent use.
type Indexer struct {
	pipeline   *enrich.Pipeline
	messages   storage.MessageStore
	activity   storage.ActivityStore
	metrics    *observability.Metrics
	reporter   report.Reporter
	log        *zap.SugaredLogger
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
	now        func() time.Time
}

func New(opts Options) *Indexer {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.Reporter == nil {
		opts.Reporter = report.NewNopReporter()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Indexer{
		pipeline:   opts.Pipeline,
		messages:   opts.Messages,
		activity:   opts.Activity,
		metrics:    opts.Metrics,
		reporter:   opts.Reporter,
		log:        opts.Logger,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		maxDelay:   opts.MaxDelay,
		now:        opts.Now,
	}
}

// Index enriches and upserts one message. Returns created=true when a new
// document was made. Persistent store failures are journaled and reported;
// the caller decides whether to advance its high-water mark.
func (ix *Indexer) Index(ctx context.Context, m *domain.RawMessage, path domain.IngestPath) (bool, error) {
	start := ix.now()

	enriched := ix.pipeline.Enrich(ctx, m)
	if ix.metrics != nil {
		if enriched.Enrichment.SymbolsDegraded {
			ix.metrics.SymbolLookupDegraded.Inc()
		}
		if enriched.Enrichment.SentimentDegraded {
			ix.metrics.SentimentDegraded.Inc()
		}
	}

	created, err := ix.upsertWithRetry(ctx, &enriched)
	if err != nil {
		ix.log.Errorw("message index failed",
			"source_id", m.SourceID, "item_id", m.ItemID, "path", path, "error", err)
		ix.reporter.Error(fmt.Errorf("index %s: %w", m.DedupKey(), err), map[string]string{
			"path":      string(path),
			"dedup_key": m.DedupKey(),
		})
		if ix.metrics != nil {
			ix.metrics.IndexFailures.Inc()
		}
		ix.journal(m, path, domain.OutcomeFailed, err.Error())
		return false, err
	}

	if ix.metrics != nil {
		if created {
			ix.metrics.MessagesIndexed.Inc()
		} else {
			ix.metrics.MessagesRefreshed.Inc()
		}
		ix.metrics.IndexLatency.Observe(ix.now().Sub(start).Seconds())
	}

	outcome := domain.OutcomeRefreshed
	if created {
		outcome = domain.OutcomeIndexed
	}
	ix.journal(m, path, outcome, "")
	return created, nil
}

// Delete removes a message from the search store. Missing documents are
// not an error.
func (ix *Indexer) Delete(ctx context.Context, sourceID, itemID int64) error {
	if err := ix.messages.Delete(ctx, sourceID, itemID); err != nil {
		ix.log.Errorw("message delete failed",
			"source_id", sourceID, "item_id", itemID, "error", err)
		return err
	}
	if ix.metrics != nil {
		ix.metrics.DeletesProcessed.Inc()
	}
	return nil
}

func (ix *Indexer) upsertWithRetry(ctx context.Context, m *domain.EnrichedMessage) (bool, error) {
	delay := ix.retryDelay
	var lastErr error

	for attempt := 0; attempt <= ix.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > ix.maxDelay {
				delay = ix.maxDelay
			}
		}

		created, err := ix.messages.Upsert(ctx, m)
		if err == nil {
			return created, nil
		}
		lastErr = err
	}

	return false, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// journal appends one activity row. Journal failures are logged, never
// propagated; the journal must not take down ingestion.
func (ix *Indexer) journal(m *domain.RawMessage, path domain.IngestPath, outcome domain.IngestOutcome, reason string) {
	if ix.activity == nil {
		return
	}

	row := domain.IngestActivity{
		SourceID:    m.SourceID,
		ItemID:      m.ItemID,
		Path:        path,
		Outcome:     outcome,
		Reason:      reason,
		TimestampMs: ix.now().UnixMilli(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ix.activity.InsertBulk(ctx, []domain.IngestActivity{row}); err != nil {
		ix.log.Warnw("activity journal write failed",
			"source_id", m.SourceID, "item_id", m.ItemID, "error", err)
	}
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"chatwatch/internal/domain"
	"chatwatch/internal/storage"
	"chatwatch/internal/transport"
)

// Runner owns the ingest lifecycle: it registers the configured sources,
// then runs the listener, watchdog, poller and health recorder until the
// context is cancelled.
type Runner struct {
	listener *Listener
	watchdog *Watchdog
	poller   *Poller
	health   *HealthRecorder

	history transport.History
	sources storage.SourceStore
	log     *zap.SugaredLogger
}

func NewRunner(listener *Listener, watchdog *Watchdog, poller *Poller, health *HealthRecorder, history transport.History, sources storage.SourceStore, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{
		listener: listener,
		watchdog: watchdog,
		poller:   poller,
		health:   health,
		history:  history,
		sources:  sources,
		log:      log,
	}
}

// RegisterSources resolves each configured source against the platform and
// stores it. Existing records keep their high-water mark; only the metadata
// is refreshed. Unresolvable sources are an error: monitoring a source that
// does not exist is a configuration mistake, not a runtime condition.
func (r *Runner) RegisterSources(ctx context.Context, sourceIDs []int64) error {
	for _, id := range sourceIDs {
		info, err := r.history.SourceInfo(ctx, id)
		if err != nil {
			return fmt.Errorf("resolve source %d: %w", id, err)
		}

		existing, err := r.sources.Get(ctx, id)
		switch {
		case err == nil:
			info.LastItemID = existing.LastItemID
			info.LastItemAtMs = existing.LastItemAtMs
		case errors.Is(err, storage.ErrNotFound):
			// First time monitoring this source.
		default:
			return fmt.Errorf("load source %d: %w", id, err)
		}

		if err := r.sources.Put(ctx, info); err != nil {
			return fmt.Errorf("store source %d: %w", id, err)
		}
		r.log.Infow("monitoring source",
			"source_id", info.ID, "title", info.Title, "last_item_id", info.LastItemID)
	}
	return nil
}

// ReportFailureBacklog reads the journal rows whose index write failed
// persistently and logs each dedup key still pending reconciliation, so the
// backlog is visible on every restart. Returns the rows it reported.
func ReportFailureBacklog(ctx context.Context, activity storage.ActivityStore, log *zap.SugaredLogger, limit int) ([]domain.IngestActivity, error) {
	if activity == nil {
		return nil, nil
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	failures, err := activity.RecentFailures(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load failure backlog: %w", err)
	}
	if len(failures) == 0 {
		return nil, nil
	}

	log.Warnw("index failures pending reconciliation", "count", len(failures))
	for _, f := range failures {
		key := (&domain.RawMessage{SourceID: f.SourceID, ItemID: f.ItemID}).DedupKey()
		log.Warnw("pending reconciliation",
			"dedup_key", key, "path", f.Path, "reason", f.Reason, "timestamp_ms", f.TimestampMs)
	}
	return failures, nil
}

// Run blocks until ctx is cancelled and every component has stopped.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	run := func(name string, f func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.log.Debugw("component started", "component", name)
			f(ctx)
			r.log.Debugw("component stopped", "component", name)
		}()
	}

	run("listener", r.listener.Run)
	run("watchdog", r.watchdog.Run)
	run("poller", r.poller.Run)
	run("health", r.health.Run)

	wg.Wait()
}

// Command monitor runs the ingestion core: it subscribes to the push stream,
// watches it for stalls, resyncs missed history, polls as a backstop and
// writes the health snapshot the API serves.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatwatch/internal/config"
	"chatwatch/internal/enrich"
	"chatwatch/internal/index"
	"chatwatch/internal/ingest"
	"chatwatch/internal/logging"
	"chatwatch/internal/observability"
	"chatwatch/internal/report"
	"chatwatch/internal/sentiment"
	"chatwatch/internal/storage"
	chstore "chatwatch/internal/storage/clickhouse"
	"chatwatch/internal/storage/file"
	"chatwatch/internal/storage/memory"
	"chatwatch/internal/storage/migrations"
	pgstore "chatwatch/internal/storage/postgres"
	"chatwatch/internal/symbols"
	"chatwatch/internal/transport"
)

func main() {
	metricsAddr := flag.String("metrics-addr", ":9091", "Prometheus metrics HTTP address")
	useMemory := flag.Bool("use-memory", false, "Use in-memory stores instead of PostgreSQL/ClickHouse")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.App.LogLevel, cfg.App.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log, *metricsAddr, *useMemory); err != nil && err != context.Canceled {
		log.Fatalw("monitor failed", "error", err)
	}
	log.Info("shutdown complete")
}

func run(cfg *config.Config, log *zap.SugaredLogger, metricsAddr string, useMemory bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infow("shutting down", "signal", sig)
		cancel()

		select {
		case sig := <-sigCh:
			log.Warnw("forcing immediate shutdown", "signal", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()
	defer close(done)

	reporter := report.Reporter(report.NewNopReporter())
	if cfg.Sentry.DSN != "" {
		r, err := report.NewSentryReporter(cfg.Sentry.DSN, cfg.Sentry.Environment, cfg.App.Name)
		if err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		reporter = r
		defer reporter.Flush(2 * time.Second)
	}

	var (
		messageStore  storage.MessageStore
		sourceStore   storage.SourceStore
		activityStore storage.ActivityStore
	)
	if useMemory {
		messageStore = memory.NewMessageStore()
		sourceStore = memory.NewSourceStore()
		activityStore = memory.NewActivityStore()
		log.Warn("using in-memory stores, nothing will survive a restart")
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN())
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}
		messageStore = pgstore.NewMessageStore(pool)
		sourceStore = pgstore.NewSourceStore(pool)

		if cfg.ClickHouse.DSN != "" {
			chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
			if err != nil {
				return fmt.Errorf("run clickhouse migrations: %w", err)
			}
			defer chConn.Close()
			activityStore = chstore.NewActivityStore(chConn)
			log.Info("activity journal enabled")
		}
	}

	healthStore := file.NewHealthStore(cfg.Monitor.HealthPath)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	var directory symbols.Directory
	if cfg.Symbols.DirectoryURL != "" {
		directory = symbols.NewHTTPDirectory(cfg.Symbols.DirectoryURL, symbols.WithTimeout(cfg.Symbols.Timeout))
		if cfg.Redis.Addr != "" {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer rdb.Close()
			directory = symbols.NewCachedDirectory(directory, rdb, cfg.Symbols.CacheTTL, log)
			log.Info("symbol cache enabled")
		}
	}

	var classifier sentiment.Classifier
	if cfg.Sentiment.ClassifierURL != "" {
		classifier = sentiment.NewHTTPClassifier(cfg.Sentiment.ClassifierURL, cfg.Sentiment.Timeout)
	}

	pipeline := enrich.NewPipeline(enrich.Options{
		Directory:     directory,
		Classifier:    classifier,
		LookupTimeout: cfg.Symbols.Timeout,
		Logger:        log,
	})
	indexer := index.New(index.Options{
		Pipeline: pipeline,
		Messages: messageStore,
		Activity: activityStore,
		Metrics:  metrics,
		Reporter: reporter,
		Logger:   log,
	})

	history := transport.NewHistoryClient(cfg.Stream.HTTPURL, cfg.Stream.APIKey)
	stream, err := transport.NewWSStream(ctx, cfg.Stream.WSURL, cfg.Stream.APIKey, cfg.Stream.SourceIDs, nil, log)
	if err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	defer stream.Close()

	m := cfg.Monitor
	tracker := ingest.NewTracker(time.Now())
	resyncer := ingest.NewResyncer(history, sourceStore, indexer, tracker, m.PollBatchLimit, m.MinResyncInterval, metrics, log, nil)
	listener := ingest.NewListener(stream, indexer, sourceStore, tracker, metrics, log, nil)
	watchdog := ingest.NewWatchdog(stream, tracker, resyncer, m.StallThreshold, m.WatchdogInterval, metrics, log, nil)
	poller := ingest.NewPoller(history, sourceStore, indexer, tracker, m.PollBatchLimit, m.PollInterval, metrics, log, nil)
	recorder := ingest.NewHealthRecorder(stream, tracker, sourceStore, healthStore, m.StallThreshold, m.HealthInterval, log, nil)

	runner := ingest.NewRunner(listener, watchdog, poller, recorder, history, sourceStore, log)
	if err := runner.RegisterSources(ctx, cfg.Stream.SourceIDs); err != nil {
		return fmt.Errorf("register sources: %w", err)
	}

	// Surface index writes that failed before the last shutdown; their dedup
	// keys are the handles for manual reconciliation.
	if _, err := ingest.ReportFailureBacklog(ctx, activityStore, log, 50); err != nil {
		log.Warnw("failure backlog check failed", "error", err)
	}

	go serveMetrics(metricsAddr, log)

	log.Infow("monitor started",
		"sources", len(cfg.Stream.SourceIDs),
		"stall_threshold", m.StallThreshold,
		"poll_interval", m.PollInterval)
	runner.Run(ctx)
	return ctx.Err()
}

func serveMetrics(addr string, log *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	log.Infow("metrics server listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Errorw("metrics server failed", "error", err)
	}
}

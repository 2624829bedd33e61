// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatwatch"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	EventsReceived    *prometheus.CounterVec // by path
	MessagesIndexed   prometheus.Counter
	MessagesRefreshed prometheus.Counter
	IndexFailures     prometheus.Counter
	DeletesProcessed  prometheus.Counter

	// Resilience metrics
	ResyncsTriggered *prometheus.CounterVec // by reason
	ResyncsSkipped   *prometheus.CounterVec // by reason
	ResyncFailures   prometheus.Counter
	PollCycles       prometheus.Counter
	PollFailures     prometheus.Counter
	StreamConnected  prometheus.Gauge
	LastEventAge     prometheus.Gauge

	// Enrichment metrics
	SymbolLookupDegraded prometheus.Counter
	SentimentDegraded    prometheus.Counter

	// Latency metrics
	IndexLatency  prometheus.Histogram
	ResyncLatency prometheus.Histogram

	// API metrics
	APIRequests *prometheus.CounterVec // by endpoint, status
}

// NewMetrics registers all metrics on reg. Pass prometheus.DefaultRegisterer
// in main; tests use a private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_received_total",
			Help:      "Total events received by ingest path",
		}, []string{"path"}),
		MessagesIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "messages_indexed_total",
			Help:      "Total new documents created in the search store",
		}),
		MessagesRefreshed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "messages_refreshed_total",
			Help:      "Total documents overwritten in place (dedup hits)",
		}),
		IndexFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "index_failures_total",
			Help:      "Total messages that failed to index after retries",
		}),
		DeletesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "deletes_processed_total",
			Help:      "Total delete events applied to the search store",
		}),
		ResyncsTriggered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resync",
			Name:      "triggered_total",
			Help:      "Total resyncs started, by trigger reason",
		}, []string{"reason"}),
		ResyncsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resync",
			Name:      "skipped_total",
			Help:      "Total resyncs skipped, by skip reason",
		}, []string{"reason"}),
		ResyncFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resync",
			Name:      "failures_total",
			Help:      "Total resync attempts that failed",
		}),
		PollCycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "cycles_total",
			Help:      "Total poll fallback cycles completed",
		}),
		PollFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "failures_total",
			Help:      "Total poll fetches that failed",
		}),
		StreamConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connected",
			Help:      "Whether the push stream connection is up (1) or down (0)",
		}),
		LastEventAge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "last_event_age_seconds",
			Help:      "Seconds since the last push event was received",
		}),
		SymbolLookupDegraded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "symbol_lookup_degraded_total",
			Help:      "Total messages whose symbol lookup fell back to regex",
		}),
		SentimentDegraded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "sentiment_degraded_total",
			Help:      "Total messages whose sentiment fell back to keywords",
		}),
		IndexLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "index_latency_seconds",
			Help:      "Time from receiving a message to index write completion",
			Buckets:   prometheus.DefBuckets,
		}),
		ResyncLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resync",
			Name:      "latency_seconds",
			Help:      "Duration of full resync passes",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests by endpoint and status code",
		}, []string{"endpoint", "status"}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package report forwards operational errors to an external tracker.
package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter forwards errors with context tags. Implementations must be safe
// for concurrent use and must never block ingestion.
type Reporter interface {
	Error(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

// SentryReporter implements Reporter on top of sentry-go.
type SentryReporter struct{}

var _ Reporter = (*SentryReporter)(nil)

// NewSentryReporter initializes the global sentry client.
func NewSentryReporter(dsn, environment, release string) (*SentryReporter, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	return &SentryReporter{}, nil
}

func (r *SentryReporter) Error(err error, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

func (r *SentryReporter) Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// NopReporter discards everything. Used when no DSN is configured and in
// tests.
type NopReporter struct{}

var _ Reporter = (*NopReporter)(nil)

func NewNopReporter() *NopReporter {
	return &NopReporter{}
}

func (*NopReporter) Error(error, map[string]string) {}

func (*NopReporter) Flush(time.Duration) {}

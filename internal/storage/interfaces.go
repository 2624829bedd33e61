package storage

import (
	"context"

	"chatwatch/internal/domain"
)

// SearchQuery carries the parameters of a full-text search.
type SearchQuery struct {
	// Text is the full-text query. Empty means "match all".
	Text string

	// SourceID narrows the search to one source. Zero means all sources.
	SourceID int64

	// Sentiment narrows the search to one sentiment label. Empty means all.
	Sentiment domain.Sentiment

	// BeginMs / EndMs bound the origin timestamp (epoch ms, inclusive).
	// Zero means unbounded.
	BeginMs int64
	EndMs   int64

	// Limit caps the number of results. Callers validate range before here.
	Limit int

	// Offset skips leading results for pagination.
	Offset int
}

// LatestQuery carries the parameters of a reverse-chronological listing.
type LatestQuery struct {
	// SourceID narrows the listing to one source. Zero means all sources.
	SourceID int64

	// BeginMs bounds the origin timestamp from below (epoch ms, inclusive).
	// Zero means unbounded.
	BeginMs int64

	Limit  int
	Offset int
}

// SearchHit is one ranked search result.
type SearchHit struct {
	Message domain.EnrichedMessage
	Score   float64
}

// MessageStore provides access to the searchable message index.
type MessageStore interface {
	// Upsert writes a message keyed by its dedup key. Last write wins.
	// Returns created=true when a new document was made, false on overwrite.
	Upsert(ctx context.Context, m *domain.EnrichedMessage) (created bool, err error)

	// Get retrieves a message by dedup key. Returns ErrNotFound if not exists.
	Get(ctx context.Context, sourceID, itemID int64) (*domain.EnrichedMessage, error)

	// Search runs a ranked full-text query, best match first.
	Search(ctx context.Context, q SearchQuery) ([]SearchHit, error)

	// Latest retrieves the most recent messages by origin timestamp DESC.
	Latest(ctx context.Context, q LatestQuery) ([]domain.EnrichedMessage, error)

	// Delete removes a message by dedup key. Missing documents are not an error.
	Delete(ctx context.Context, sourceID, itemID int64) error
}

// SourceStore provides access to monitored sources and their high-water marks.
type SourceStore interface {
	// Put inserts or replaces a source record.
	Put(ctx context.Context, s *domain.MonitoredSource) error

	// Get retrieves a source by ID. Returns ErrNotFound if not exists.
	Get(ctx context.Context, sourceID int64) (*domain.MonitoredSource, error)

	// List retrieves all monitored sources, ordered by ID ASC.
	List(ctx context.Context) ([]domain.MonitoredSource, error)

	// AdvanceHighWater raises the high-water mark for a source. Writes with
	// itemID at or below the stored mark are ignored.
	AdvanceHighWater(ctx context.Context, sourceID, itemID, itemAtMs int64) error
}

// HealthStore persists the latest health snapshot.
type HealthStore interface {
	// Write replaces the snapshot wholesale.
	Write(ctx context.Context, s *domain.HealthSnapshot) error

	// Read retrieves the last written snapshot. Returns ErrNotFound if no
	// snapshot was ever written.
	Read(ctx context.Context) (*domain.HealthSnapshot, error)
}

// ActivityStore appends ingest activity journal rows.
type ActivityStore interface {
	// InsertBulk appends journal rows. Rows are append-only, never updated.
	InsertBulk(ctx context.Context, rows []domain.IngestActivity) error

	// RecentFailures retrieves the latest failed rows, newest first.
	RecentFailures(ctx context.Context, limit int) ([]domain.IngestActivity, error)
}

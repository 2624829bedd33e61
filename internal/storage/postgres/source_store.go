package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"chatwatch/internal/domain"
	"chatwatch/internal/storage"
)

// SourceStore implements storage.SourceStore using PostgreSQL.
type SourceStore struct {
	pool *Pool
}

// NewSourceStore creates a new SourceStore.
func NewSourceStore(pool *Pool) *SourceStore {
	return &SourceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SourceStore = (*SourceStore)(nil)

// Put inserts or replaces a source record.
func (s *SourceStore) Put(ctx context.Context, src *domain.MonitoredSource) error {
	if src == nil || src.ID == 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO sources (
			source_id, title, source_type, username, last_item_id, last_item_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source_id) DO UPDATE SET
			title = EXCLUDED.title,
			source_type = EXCLUDED.source_type,
			username = EXCLUDED.username,
			last_item_id = EXCLUDED.last_item_id,
			last_item_at_ms = EXCLUDED.last_item_at_ms
	`

	_, err := s.pool.Exec(ctx, query,
		src.ID,
		src.Title,
		string(src.Type),
		src.Username,
		src.LastItemID,
		src.LastItemAtMs,
	)
	if err != nil {
		return fmt.Errorf("put source: %w", err)
	}
	return nil
}

// Get retrieves a source by ID. Returns ErrNotFound if not exists.
func (s *SourceStore) Get(ctx context.Context, sourceID int64) (*domain.MonitoredSource, error) {
	query := `
		SELECT source_id, title, source_type, username, last_item_id, last_item_at_ms
		FROM sources
		WHERE source_id = $1
	`

	var (
		src        domain.MonitoredSource
		sourceType string
	)
	err := s.pool.QueryRow(ctx, query, sourceID).Scan(
		&src.ID,
		&src.Title,
		&sourceType,
		&src.Username,
		&src.LastItemID,
		&src.LastItemAtMs,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	src.Type = domain.SourceType(sourceType)
	return &src, nil
}

// List retrieves all monitored sources, ordered by ID ASC.
func (s *SourceStore) List(ctx context.Context) ([]domain.MonitoredSource, error) {
	query := `
		SELECT source_id, title, source_type, username, last_item_id, last_item_at_ms
		FROM sources
		ORDER BY source_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	return scanSources(rows)
}

// AdvanceHighWater raises the high-water mark for a source. Writes with
// item_id at or below the stored mark leave the row unchanged.
func (s *SourceStore) AdvanceHighWater(ctx context.Context, sourceID, itemID, itemAtMs int64) error {
	query := `
		UPDATE sources
		SET last_item_id = $2, last_item_at_ms = $3
		WHERE source_id = $1 AND last_item_id < $2
	`

	tag, err := s.pool.Exec(ctx, query, sourceID, itemID, itemAtMs)
	if err != nil {
		return fmt.Errorf("advance high water: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the mark already passed itemID or the source is unknown.
		// Distinguish so callers learn about missing sources.
		if _, err := s.Get(ctx, sourceID); err != nil {
			return err
		}
	}
	return nil
}

func scanSources(rows pgx.Rows) ([]domain.MonitoredSource, error) {
	var sources []domain.MonitoredSource
	for rows.Next() {
		var (
			src        domain.MonitoredSource
			sourceType string
		)
		err := rows.Scan(
			&src.ID,
			&src.Title,
			&sourceType,
			&src.Username,
			&src.LastItemID,
			&src.LastItemAtMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		src.Type = domain.SourceType(sourceType)
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source rows: %w", err)
	}
	return sources, nil
}

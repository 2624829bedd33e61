package clickhouse

import (
	"context"
	"fmt"

	"chatwatch/internal/domain"
	"chatwatch/internal/storage"
)

// ActivityStore implements storage.ActivityStore using ClickHouse.
// The journal is append-only; MergeTree ordering keeps reads cheap.
type ActivityStore struct {
	conn *Conn
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(conn *Conn) *ActivityStore {
	return &ActivityStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

// InsertBulk appends journal rows.
func (s *ActivityStore) InsertBulk(ctx context.Context, rows []domain.IngestActivity) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ingest_activity (
			source_id, item_id, path, outcome, reason, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.SourceID, r.ItemID, string(r.Path), string(r.Outcome),
			r.Reason, uint64(r.TimestampMs),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// RecentFailures retrieves the latest failed rows, newest first.
func (s *ActivityStore) RecentFailures(ctx context.Context, limit int) ([]domain.IngestActivity, error) {
	query := `
		SELECT source_id, item_id, path, outcome, reason, timestamp_ms
		FROM ingest_activity
		WHERE outcome = 'failed'
		ORDER BY timestamp_ms DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent failures: %w", err)
	}
	defer rows.Close()

	var out []domain.IngestActivity
	for rows.Next() {
		var (
			r           domain.IngestActivity
			path        string
			outcome     string
			timestampMs uint64
		)
		err := rows.Scan(&r.SourceID, &r.ItemID, &path, &outcome, &r.Reason, &timestampMs)
		if err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		r.Path = domain.IngestPath(path)
		r.Outcome = domain.IngestOutcome(outcome)
		r.TimestampMs = int64(timestampMs)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}

	return out, nil
}

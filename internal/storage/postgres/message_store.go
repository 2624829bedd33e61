package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"chatwatch/internal/domain"
	"chatwatch/internal/storage"
)

// MessageStore implements storage.MessageStore using PostgreSQL full-text
// search over the messages table.
type MessageStore struct {
	pool *Pool
}

// NewMessageStore creates a new MessageStore.
func NewMessageStore(pool *Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MessageStore = (*MessageStore)(nil)

// Upsert writes a message keyed by (source_id, item_id). Last write wins.
// Returns created=true when the row did not exist before.
func (s *MessageStore) Upsert(ctx context.Context, m *domain.EnrichedMessage) (bool, error) {
	if m == nil {
		return false, storage.ErrInvalidInput
	}

	author, err := json.Marshal(m.Author)
	if err != nil {
		return false, fmt.Errorf("marshal author: %w", err)
	}
	enrichment, err := json.Marshal(m.Enrichment)
	if err != nil {
		return false, fmt.Errorf("marshal enrichment: %w", err)
	}
	// NULL media column for text-only messages.
	var media []byte
	if m.Media != nil {
		media, err = json.Marshal(m.Media)
		if err != nil {
			return false, fmt.Errorf("marshal media: %w", err)
		}
	}

	query := `
		INSERT INTO messages (
			source_id, item_id, source_title, source_type, author, body,
			media, reply_to_item_id, forward_from_source_id, timestamp_ms,
			enrichment, sentiment
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (source_id, item_id) DO UPDATE SET
			source_title = EXCLUDED.source_title,
			source_type = EXCLUDED.source_type,
			author = EXCLUDED.author,
			body = EXCLUDED.body,
			media = EXCLUDED.media,
			reply_to_item_id = EXCLUDED.reply_to_item_id,
			forward_from_source_id = EXCLUDED.forward_from_source_id,
			timestamp_ms = EXCLUDED.timestamp_ms,
			enrichment = EXCLUDED.enrichment,
			sentiment = EXCLUDED.sentiment
		RETURNING (xmax = 0) AS created
	`

	var created bool
	err = s.pool.QueryRow(ctx, query,
		m.SourceID,
		m.ItemID,
		m.SourceTitle,
		string(m.SourceType),
		author,
		m.Text,
		media,
		m.ReplyToItemID,
		m.ForwardFromSourceID,
		m.TimestampMs,
		enrichment,
		string(m.Enrichment.Sentiment),
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert message: %w", err)
	}
	return created, nil
}

// Get retrieves a message by (source_id, item_id). Returns ErrNotFound if not exists.
func (s *MessageStore) Get(ctx context.Context, sourceID, itemID int64) (*domain.EnrichedMessage, error) {
	query := messageColumns + `
		FROM messages
		WHERE source_id = $1 AND item_id = $2
	`

	rows, err := s.pool.Query(ctx, query, sourceID, itemID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, storage.ErrNotFound
	}
	return &msgs[0], nil
}

// Search runs a ranked full-text query using websearch_to_tsquery.
// With no query text it degrades to a filtered scan ordered by recency.
func (s *MessageStore) Search(ctx context.Context, q storage.SearchQuery) ([]storage.SearchHit, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	rank := "0::float8"
	if q.Text != "" {
		p := arg(q.Text)
		conds = append(conds, "search @@ websearch_to_tsquery('english', "+p+")")
		rank = "ts_rank(search, websearch_to_tsquery('english', " + p + "))"
	}
	if q.SourceID != 0 {
		conds = append(conds, "source_id = "+arg(q.SourceID))
	}
	if q.Sentiment != "" {
		conds = append(conds, "sentiment = "+arg(string(q.Sentiment)))
	}
	if q.BeginMs != 0 {
		conds = append(conds, "timestamp_ms >= "+arg(q.BeginMs))
	}
	if q.EndMs != 0 {
		conds = append(conds, "timestamp_ms <= "+arg(q.EndMs))
	}

	query := messageColumns + ", " + rank + " AS score FROM messages"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY score DESC, timestamp_ms DESC"
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + arg(q.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	var hits []storage.SearchHit
	for rows.Next() {
		m, score, err := scanMessageWithScore(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, storage.SearchHit{Message: *m, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return hits, nil
}

// Latest retrieves the most recent messages by origin timestamp DESC.
func (s *MessageStore) Latest(ctx context.Context, q storage.LatestQuery) ([]domain.EnrichedMessage, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if q.SourceID != 0 {
		conds = append(conds, "source_id = "+arg(q.SourceID))
	}
	if q.BeginMs != 0 {
		conds = append(conds, "timestamp_ms >= "+arg(q.BeginMs))
	}

	query := messageColumns + " FROM messages"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp_ms DESC"
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + arg(q.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get latest messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// Delete removes a message. Missing rows are not an error.
func (s *MessageStore) Delete(ctx context.Context, sourceID, itemID int64) error {
	query := `DELETE FROM messages WHERE source_id = $1 AND item_id = $2`

	if _, err := s.pool.Exec(ctx, query, sourceID, itemID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

const messageColumns = `
	SELECT source_id, item_id, source_title, source_type, author, body,
		media, reply_to_item_id, forward_from_source_id, timestamp_ms, enrichment`

func scanMessage(rows pgx.Rows, dest ...any) (*domain.EnrichedMessage, error) {
	var (
		m          domain.EnrichedMessage
		sourceType string
		author     []byte
		media      []byte
		enrichment []byte
	)

	fields := []any{
		&m.SourceID,
		&m.ItemID,
		&m.SourceTitle,
		&sourceType,
		&author,
		&m.Text,
		&media,
		&m.ReplyToItemID,
		&m.ForwardFromSourceID,
		&m.TimestampMs,
		&enrichment,
	}
	fields = append(fields, dest...)

	if err := rows.Scan(fields...); err != nil {
		return nil, fmt.Errorf("scan message row: %w", err)
	}

	m.SourceType = domain.SourceType(sourceType)
	if err := json.Unmarshal(author, &m.Author); err != nil {
		return nil, fmt.Errorf("unmarshal author: %w", err)
	}
	if len(media) > 0 {
		m.Media = &domain.Media{}
		if err := json.Unmarshal(media, m.Media); err != nil {
			return nil, fmt.Errorf("unmarshal media: %w", err)
		}
	}
	if err := json.Unmarshal(enrichment, &m.Enrichment); err != nil {
		return nil, fmt.Errorf("unmarshal enrichment: %w", err)
	}
	return &m, nil
}

func scanMessageWithScore(rows pgx.Rows) (*domain.EnrichedMessage, float64, error) {
	var score float64
	m, err := scanMessage(rows, &score)
	if err != nil {
		return nil, 0, err
	}
	return m, score, nil
}

func scanMessages(rows pgx.Rows) ([]domain.EnrichedMessage, error) {
	var msgs []domain.EnrichedMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return msgs, nil
}

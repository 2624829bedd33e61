package domain

// SourceType classifies a monitored chat source.
type SourceType string

const (
	SourceTypeChannel    SourceType = "channel"
	SourceTypeGroup      SourceType = "group"
	SourceTypeSupergroup SourceType = "supergroup"
)

// MonitoredSource is a chat channel or group selected for monitoring.
// Created when selected; never deleted while monitored, only unsubscribed.
type MonitoredSource struct {
	ID       int64      `json:"id"`
	Title    string     `json:"title"`
	Type     SourceType `json:"type"`
	Username string     `json:"username,omitempty"`

	// High-water mark: the most recently ingested item for this source.
	// Bounds resync fetches; advances on every successful ingest or resync.
	LastItemID    int64 `json:"last_item_id"`
	LastItemAtMs  int64 `json:"last_item_at_ms"`
}

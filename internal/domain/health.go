package domain

// ResyncStatus is the outcome of the most recent resync attempt.
type ResyncStatus string

const (
	ResyncStatusSuccess ResyncStatus = "success"
	ResyncStatusFailed  ResyncStatus = "failed"
	ResyncStatusSkipped ResyncStatus = "skipped"
)

// Health status values derived from ingestion state.
const (
	HealthStatusHealthy  = "healthy"
	HealthStatusDegraded = "degraded"
	HealthStatusStalled  = "stalled"
)

// HealthSnapshot is the externally readable record of ingestion state.
// Rebuilt wholesale on every write cycle; consumers treat it as read-only.
// All *At fields are epoch milliseconds; zero means "never".
type HealthSnapshot struct {
	Status           string       `json:"status"`
	Connected        bool         `json:"connected"`
	MonitoredChats   int          `json:"monitored_chats"`
	LastEventAt      int64        `json:"last_event_at"`
	LastEventAgeSecs int64        `json:"last_event_age_seconds"`
	LastResyncAt     int64        `json:"last_resync_at"`
	LastResyncStatus ResyncStatus `json:"last_resync_status,omitempty"`
	LastResyncReason string       `json:"last_resync_reason,omitempty"`
	LastPollAt       int64        `json:"last_poll_at"`
	UpdatedAt        int64        `json:"updated_at"`
}

package domain

// IngestPath identifies which producer delivered an item.
type IngestPath string

const (
	IngestPathPush   IngestPath = "push"
	IngestPathPoll   IngestPath = "poll"
	IngestPathResync IngestPath = "resync"
)

// IngestOutcome is the per-item result of an index attempt.
type IngestOutcome string

const (
	// OutcomeIndexed means a new document was created.
	OutcomeIndexed IngestOutcome = "indexed"
	// OutcomeRefreshed means an existing document was overwritten (dedup hit).
	OutcomeRefreshed IngestOutcome = "refreshed"
	// OutcomeFailed means the write failed persistently; the dedup key in
	// this record is the reconciliation handle.
	OutcomeFailed IngestOutcome = "failed"
)

// IngestActivity is one append-only journal row per index attempt.
// Failed rows double as the record of dedup keys pending reconciliation.
type IngestActivity struct {
	SourceID    int64         `json:"source_id"`
	ItemID      int64         `json:"item_id"`
	Path        IngestPath    `json:"path"`
	Outcome     IngestOutcome `json:"outcome"`
	Reason      string        `json:"reason,omitempty"`
	TimestampMs int64         `json:"timestamp_ms"`
}

package domain

import "fmt"

// Author carries sender metadata attached to a raw message.
type Author struct {
	UserID    int64  `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	IsBot     bool   `json:"is_bot"`
}

// Media describes an attachment carried by a message. Nil on text-only
// messages.
type Media struct {
	Type     string `json:"type"`
	FileID   string `json:"file_id,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// RawMessage is a message as received from a source, before enrichment.
// Immutable once received. Two RawMessages with the same (SourceID, ItemID)
// are the same logical message regardless of which path delivered them.
type RawMessage struct {
	SourceID    int64      `json:"source_id"`
	ItemID      int64      `json:"item_id"`
	SourceTitle string     `json:"source_title,omitempty"`
	SourceType  SourceType `json:"source_type,omitempty"`
	Author      Author     `json:"author"`
	Text        string     `json:"text"`
	Media       *Media     `json:"media,omitempty"`

	ReplyToItemID       int64 `json:"reply_to_item_id,omitempty"`
	ForwardFromSourceID int64 `json:"forward_from_source_id,omitempty"`

	// TimestampMs is the origin timestamp in epoch milliseconds.
	TimestampMs int64 `json:"timestamp_ms"`
}

// DedupKey identifies the logical message across push, poll and resync paths.
// Matches the search-store document id format.
func (m *RawMessage) DedupKey() string {
	return fmt.Sprintf("%d_%d", m.SourceID, m.ItemID)
}

// EnrichedMessage is a RawMessage plus extracted structured data.
// Re-enrichment may change the enrichment fields but never the identity.
type EnrichedMessage struct {
	RawMessage
	Enrichment Enrichment `json:"enrichment"`
}

// Package transport talks to the upstream chat gateway: a websocket push
// stream for live events and an HTTP history API for catch-up fetches.
package transport

import (
	"context"

	"chatwatch/internal/domain"
)

// EventType discriminates push stream events.
type EventType string

const (
	// EventMessage carries a new or edited message.
	EventMessage EventType = "message"
	// EventDelete signals a message removal upstream.
	EventDelete EventType = "delete"
)

// Event is one push stream delivery.
type Event struct {
	Type EventType

	// Message is set for EventMessage.
	Message *domain.RawMessage

	// SourceID and ItemID identify the target for EventDelete.
	SourceID int64
	ItemID   int64
}

// PushStream is the live event feed. Events are delivered in per-source
// order; the stream reconnects internally and re-subscribes, so consumers
// only see a single channel for the life of the process.
type PushStream interface {
	// Events returns the delivery channel. Closed only by Close.
	Events() <-chan Event

	// Connected reports whether the underlying connection is up.
	Connected() bool

	Close() error
}

// History is the catch-up fetch API.
type History interface {
	// FetchSince returns messages with item id strictly greater than
	// afterItemID, ascending, at most limit.
	FetchSince(ctx context.Context, sourceID, afterItemID int64, limit int) ([]domain.RawMessage, error)

	// FetchLatest returns the most recent messages for a source,
	// ascending by item id, at most limit.
	FetchLatest(ctx context.Context, sourceID int64, limit int) ([]domain.RawMessage, error)

	// SourceInfo returns source metadata for registration at startup.
	SourceInfo(ctx context.Context, sourceID int64) (*domain.MonitoredSource, error)
}

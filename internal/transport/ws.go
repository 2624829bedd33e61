package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatwatch/internal/domain"
)

// WSConfig configures WebSocket stream behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSStream implements PushStream over gorilla/websocket. One connection
// multiplexes all monitored sources; a reconnect re-sends the subscribe
// frame for the full set.
type WSStream struct {
	endpoint  string
	apiKey    string
	sourceIDs []int64
	config    WSConfig
	log       *zap.SugaredLogger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	connected atomic.Bool

	// events has a large buffer to absorb bursts; sends block rather
	// than drop.
	events chan Event

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

var _ PushStream = (*WSStream)(nil)

// NewWSStream connects to the gateway and subscribes to sourceIDs.
func NewWSStream(ctx context.Context, endpoint, apiKey string, sourceIDs []int64, config *WSConfig, log *zap.SugaredLogger) (*WSStream, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	s := &WSStream{
		endpoint:  endpoint,
		apiKey:    apiKey,
		sourceIDs: sourceIDs,
		config:    cfg,
		log:       log,
		events:    make(chan Event, 10000),
		done:      make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	if err := s.subscribe(); err != nil {
		s.connMu.Lock()
		s.conn.Close()
		s.connMu.Unlock()
		return nil, err
	}
	s.connected.Store(true)

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

func (s *WSStream) Events() <-chan Event {
	return s.events
}

func (s *WSStream) Connected() bool {
	return s.connected.Load()
}

// connect establishes the WebSocket connection.
func (s *WSStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// subscribe sends the subscribe frame for all monitored sources.
func (s *WSStream) subscribe() error {
	req := wsFrame{
		Op:        "subscribe",
		APIKey:    s.apiKey,
		SourceIDs: s.sourceIDs,
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the connection and the events channel.
func (s *WSStream) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)
	s.connected.Store(false)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.events)
	return nil
}

// readLoop reads frames and dispatches events, reconnecting on error.
func (s *WSStream) readLoop() {
	defer s.wg.Done()

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			// A read error on a conn the reconnect goroutine already
			// replaced must not tear down the replacement.
			s.connMu.Lock()
			current := s.conn == conn
			s.connMu.Unlock()

			if current {
				s.connected.Store(false)
				if !s.reconnecting.Swap(true) {
					go s.reconnect()
				}
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		s.handleMessage(message)
	}
}

// reconnect re-dials and re-subscribes after a connection drop, retrying
// with exponential backoff until the gateway comes back or the stream
// closes. Exactly one reconnect goroutine runs at a time.
func (s *WSStream) reconnect() {
	defer s.reconnecting.Store(false)

	delay := s.config.ReconnectDelay
	for {
		if s.closed.Load() {
			return
		}

		select {
		case <-s.done:
			return
		case <-time.After(delay):
		}

		s.connMu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.connMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := s.connect(ctx)
		cancel()
		if err == nil {
			err = s.subscribe()
		}
		if err == nil {
			s.connected.Store(true)
			s.log.Infow("stream reconnected", "sources", len(s.sourceIDs))
			return
		}

		s.log.Warnw("stream reconnect failed", "retry_in", delay, "error", err)
		delay *= 2
		if delay > s.config.MaxReconnectDelay {
			delay = s.config.MaxReconnectDelay
		}
	}
}

// handleMessage parses a frame and dispatches the event.
func (s *WSStream) handleMessage(message []byte) {
	var frame wsFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		s.log.Warnw("unparseable stream frame", "error", err)
		return
	}

	switch frame.Op {
	case "subscribed":
		s.log.Infow("subscription confirmed", "sources", len(frame.SourceIDs))
	case "event":
		s.dispatch(&frame)
	case "error":
		s.log.Errorw("gateway error frame", "code", frame.Code, "message", frame.Message)
	}
}

func (s *WSStream) dispatch(frame *wsFrame) {
	var ev Event
	switch EventType(frame.Type) {
	case EventMessage:
		if frame.Data == nil {
			return
		}
		var m domain.RawMessage
		if err := json.Unmarshal(frame.Data, &m); err != nil {
			s.log.Warnw("unparseable message event", "error", err)
			return
		}
		ev = Event{Type: EventMessage, Message: &m, SourceID: m.SourceID, ItemID: m.ItemID}
	case EventDelete:
		ev = Event{Type: EventDelete, SourceID: frame.SourceID, ItemID: frame.ItemID}
	default:
		return
	}

	// Block until delivered; never drop events.
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *WSStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				// Reader notices dead connections and reconnects.
				s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
		}
	}
}

// wsFrame is the gateway wire format, shared by requests and responses.
type wsFrame struct {
	Op        string          `json:"op"`
	APIKey    string          `json:"api_key,omitempty"`
	SourceIDs []int64         `json:"source_ids,omitempty"`
	Type      string          `json:"type,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	SourceID  int64           `json:"source_id,omitempty"`
	ItemID    int64           `json:"item_id,omitempty"`
	Code      int             `json:"code,omitempty"`
	Message   string          `json:"message,omitempty"`
}

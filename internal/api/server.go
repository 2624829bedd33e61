// Package api exposes the read-only HTTP surface: ranked search, latest
// messages and the merged health view. It only reads stores; ingestion runs
// in a separate process and communicates through them.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"chatwatch/internal/domain"
	"chatwatch/internal/observability"
	"chatwatch/internal/storage"
)

// Query limits.
const (
	DefaultLimit = 50
	MaxLimit     = 100

	// minEpochMs rejects second-resolution timestamps passed where
	// millisecond resolution is required. 10^12 ms is 2001-09-09.
	minEpochMs = 1_000_000_000_000
)

// Server handles the read-only API endpoints.
type Server struct {
	messages storage.MessageStore
	health   storage.HealthStore
	metrics  *observability.Metrics
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewServer wires a Server. Metrics may be nil.
func NewServer(messages storage.MessageStore, health storage.HealthStore, metrics *observability.Metrics, log *zap.SugaredLogger, now func() time.Time) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if now == nil {
		now = time.Now
	}
	return &Server{
		messages: messages,
		health:   health,
		metrics:  metrics,
		log:      log,
		now:      now,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/latest", s.handleLatest)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

type searchResponse struct {
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	Results []searchHit `json:"results"`
}

type searchHit struct {
	Score float64 `json:"score"`
	domain.EnrichedMessage
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	text := q.Get("query")
	if text == "" {
		s.writeError(w, "/search", http.StatusBadRequest, "query is required")
		return
	}

	limit, offset, err := parsePage(q)
	if err != nil {
		s.writeError(w, "/search", http.StatusBadRequest, err.Error())
		return
	}
	begin, err := parseEpochMs(q.Get("begin"))
	if err != nil {
		s.writeError(w, "/search", http.StatusBadRequest, "begin: "+err.Error())
		return
	}
	end, err := parseEpochMs(q.Get("end"))
	if err != nil {
		s.writeError(w, "/search", http.StatusBadRequest, "end: "+err.Error())
		return
	}
	sourceID, err := parseInt64(q.Get("source_id"))
	if err != nil {
		s.writeError(w, "/search", http.StatusBadRequest, "source_id: "+err.Error())
		return
	}
	sent, err := parseSentiment(q.Get("sentiment"))
	if err != nil {
		s.writeError(w, "/search", http.StatusBadRequest, err.Error())
		return
	}

	hits, err := s.messages.Search(r.Context(), storage.SearchQuery{
		Text:      text,
		SourceID:  sourceID,
		Sentiment: sent,
		BeginMs:   begin,
		EndMs:     end,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		s.log.Errorw("search failed", "query", text, "error", err)
		s.writeError(w, "/search", http.StatusInternalServerError, "search failed")
		return
	}

	resp := searchResponse{
		Total:   len(hits),
		Limit:   limit,
		Offset:  offset,
		Results: make([]searchHit, 0, len(hits)),
	}
	for _, h := range hits {
		resp.Results = append(resp.Results, searchHit{Score: h.Score, EnrichedMessage: h.Message})
	}
	s.writeJSON(w, "/search", http.StatusOK, resp)
}

type latestResponse struct {
	Total   int                      `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
	Results []domain.EnrichedMessage `json:"results"`
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, offset, err := parsePage(q)
	if err != nil {
		s.writeError(w, "/latest", http.StatusBadRequest, err.Error())
		return
	}
	begin, err := parseEpochMs(q.Get("begin"))
	if err != nil {
		s.writeError(w, "/latest", http.StatusBadRequest, "begin: "+err.Error())
		return
	}
	sourceID, err := parseInt64(q.Get("source_id"))
	if err != nil {
		s.writeError(w, "/latest", http.StatusBadRequest, "source_id: "+err.Error())
		return
	}

	msgs, err := s.messages.Latest(r.Context(), storage.LatestQuery{
		SourceID: sourceID,
		BeginMs:  begin,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.log.Errorw("latest failed", "error", err)
		s.writeError(w, "/latest", http.StatusInternalServerError, "listing failed")
		return
	}
	if msgs == nil {
		msgs = []domain.EnrichedMessage{}
	}

	s.writeJSON(w, "/latest", http.StatusOK, latestResponse{
		Total:   len(msgs),
		Limit:   limit,
		Offset:  offset,
		Results: msgs,
	})
}

// handleHealth reports the API's own liveness and merges the ingest snapshot
// when one has been written. A missing snapshot is not an API error; it just
// means the monitor has not run yet.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":     "ok",
		"service":    "chatwatch-api",
		"updated_at": s.now().UnixMilli(),
	}

	snap, err := s.readSnapshot(r.Context())
	switch {
	case err == nil:
		resp["ingest"] = snap
	case errors.Is(err, storage.ErrNotFound):
	default:
		s.log.Warnw("ingest snapshot read failed", "error", err)
	}

	s.writeJSON(w, "/health", http.StatusOK, resp)
}

func (s *Server) readSnapshot(ctx context.Context) (*domain.HealthSnapshot, error) {
	if s.health == nil {
		return nil, storage.ErrNotFound
	}
	return s.health.Read(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, "/", http.StatusNotFound, "not found")
		return
	}
	s.writeJSON(w, "/", http.StatusOK, map[string]any{
		"service":   "chatwatch",
		"endpoints": []string{"/search", "/latest", "/health"},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, endpoint string, status int, v any) {
	if s.metrics != nil {
		s.metrics.APIRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warnw("response encode failed", "endpoint", endpoint, "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, endpoint string, status int, msg string) {
	s.writeJSON(w, endpoint, status, map[string]string{"error": msg})
}

// parsePage reads limit (with its "size" alias) and offset.
func parsePage(q map[string][]string) (limit, offset int, err error) {
	limit = DefaultLimit
	raw := first(q, "limit")
	if raw == "" {
		raw = first(q, "size")
	}
	if raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("limit: %w", err)
		}
		if limit < 1 || limit > MaxLimit {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", MaxLimit)
		}
	}

	if raw := first(q, "offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("offset: %w", err)
		}
		if offset < 0 {
			return 0, 0, errors.New("offset must not be negative")
		}
	}
	return limit, offset, nil
}

func first(q map[string][]string, key string) string {
	if vs := q[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// parseEpochMs parses a millisecond epoch bound. Values that look like
// second-resolution epochs are rejected instead of silently producing an
// empty result window.
func parseEpochMs(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if v < minEpochMs {
		return 0, fmt.Errorf("must be epoch milliseconds (>= %d)", minEpochMs)
	}
	return v, nil
}

func parseInt64(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func parseSentiment(raw string) (domain.Sentiment, error) {
	switch domain.Sentiment(raw) {
	case "", domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral, domain.SentimentUnknown:
		return domain.Sentiment(raw), nil
	default:
		return "", fmt.Errorf("unknown sentiment %q", raw)
	}
}

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"chatwatch/internal/domain"
)

// Default configuration values.
const (
	DefaultHistoryTimeout    = 30 * time.Second
	DefaultHistoryMaxRetries = 3
	DefaultHistoryRetryDelay = 1 * time.Second
	DefaultHistoryMaxDelay   = 10 * time.Second
)

// HistoryClient implements History against the gateway HTTP API.
type HistoryClient struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

var _ History = (*HistoryClient)(nil)

// HistoryOption configures HistoryClient.
type HistoryOption func(*HistoryClient)

// WithHistoryTimeout sets HTTP client timeout.
func WithHistoryTimeout(d time.Duration) HistoryOption {
	return func(c *HistoryClient) {
		c.client.Timeout = d
	}
}

// WithHistoryMaxRetries sets maximum retry attempts.
func WithHistoryMaxRetries(n int) HistoryOption {
	return func(c *HistoryClient) {
		c.maxRetries = n
	}
}

// WithHistoryRetryDelay sets initial retry delay.
func WithHistoryRetryDelay(d time.Duration) HistoryOption {
	return func(c *HistoryClient) {
		c.retryDelay = d
	}
}

// WithHistoryHTTPClient sets custom http.Client.
func WithHistoryHTTPClient(client *http.Client) HistoryOption {
	return func(c *HistoryClient) {
		c.client = client
	}
}

// NewHistoryClient creates a History backed by the gateway HTTP API.
func NewHistoryClient(baseURL, apiKey string, opts ...HistoryOption) *HistoryClient {
	c := &HistoryClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: DefaultHistoryTimeout},
		maxRetries: DefaultHistoryMaxRetries,
		retryDelay: DefaultHistoryRetryDelay,
		maxDelay:   DefaultHistoryMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type historyResponse struct {
	Messages []domain.RawMessage `json:"messages"`
}

// FetchSince returns messages newer than afterItemID, ascending, capped at
// limit.
func (c *HistoryClient) FetchSince(ctx context.Context, sourceID, afterItemID int64, limit int) ([]domain.RawMessage, error) {
	q := url.Values{}
	q.Set("after_id", strconv.FormatInt(afterItemID, 10))
	q.Set("limit", strconv.Itoa(limit))

	msgs, err := c.fetchMessages(ctx, sourceID, q)
	if err != nil {
		return nil, err
	}

	// Defensive: the gateway promises ascending order and strictly newer
	// items, but the resync contract depends on it.
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ItemID < msgs[j].ItemID })
	filtered := msgs[:0]
	for _, m := range msgs {
		if m.ItemID > afterItemID {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// FetchLatest returns the most recent messages, ascending by item id.
func (c *HistoryClient) FetchLatest(ctx context.Context, sourceID int64, limit int) ([]domain.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	msgs, err := c.fetchMessages(ctx, sourceID, q)
	if err != nil {
		return nil, err
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ItemID < msgs[j].ItemID })
	return msgs, nil
}

func (c *HistoryClient) fetchMessages(ctx context.Context, sourceID int64, q url.Values) ([]domain.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/sources/%d/messages?%s", c.baseURL, sourceID, q.Encode())

	var parsed historyResponse
	if err := c.get(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}
	return parsed.Messages, nil
}

// SourceInfo returns source metadata.
func (c *HistoryClient) SourceInfo(ctx context.Context, sourceID int64) (*domain.MonitoredSource, error) {
	endpoint := fmt.Sprintf("%s/sources/%d", c.baseURL, sourceID)

	var src domain.MonitoredSource
	if err := c.get(ctx, endpoint, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

// get performs a GET with retries and exponential backoff on transport and
// 5xx failures.
func (c *HistoryClient) get(ctx context.Context, endpoint string, out any) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("history status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("history status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("unmarshal history response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

package symbols

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatwatch/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout    = 5 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
)

// HTTPDirectory implements Directory against the symbol directory HTTP API.
type HTTPDirectory struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// ClientOption configures HTTPDirectory.
type ClientOption func(*HTTPDirectory)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPDirectory) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPDirectory) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPDirectory) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPDirectory) {
		c.client = client
	}
}

// NewHTTPDirectory creates a Directory backed by the HTTP API at endpoint.
func NewHTTPDirectory(endpoint string, opts ...ClientOption) *HTTPDirectory {
	c := &HTTPDirectory{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Directory = (*HTTPDirectory)(nil)

type lookupResponse struct {
	Symbols []domain.SymbolMatch `json:"symbols"`
}

// Lookup resolves candidates via GET {endpoint}?query=BTC,ETH with retries
// and exponential backoff on transport and 5xx failures.
func (c *HTTPDirectory) Lookup(ctx context.Context, candidates []string) ([]domain.SymbolMatch, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse directory endpoint: %w", err)
	}
	q := u.Query()
	q.Set("query", strings.Join(candidates, ","))
	u.RawQuery = q.Encode()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
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
			lastErr = fmt.Errorf("directory status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("directory status %d: %s", resp.StatusCode, string(body))
		}

		var parsed lookupResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("unmarshal directory response: %w", err)
		}
		return parsed.Symbols, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chatwatch/internal/domain"
)

const defaultTimeout = 5 * time.Second

// HTTPClassifier implements Classifier against an external HTTP service.
// No retries here: classification sits on the hot indexing path and the
// caller degrades to the keyword fallback on any failure.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
}

var _ Classifier = (*HTTPClassifier)(nil)

func NewHTTPClassifier(endpoint string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Sentiment string `json:"sentiment"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, text string) (domain.Sentiment, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed classifyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal classifier response: %w", err)
	}

	switch s := domain.Sentiment(parsed.Sentiment); s {
	case domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral:
		return s, nil
	default:
		return "", fmt.Errorf("classifier returned unknown label %q", parsed.Sentiment)
	}
}

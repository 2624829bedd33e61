// Package sentiment labels message text. The primary classifier is an
// external HTTP service; a keyword fallback keeps labels flowing when it
// is down.
package sentiment

import (
	"context"

	"chatwatch/internal/domain"
)

// Classifier labels a message text with a sentiment.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Sentiment, error)
}

package sentiment

import (
	"context"

	"chatwatch/internal/domain"
	"chatwatch/internal/extract"
)

// KeywordClassifier labels text by bullish/bearish keyword counts. Always
// succeeds; used standalone or as the fallback behind HTTPClassifier.
type KeywordClassifier struct {
	extractor *extract.Extractor
}

var _ Classifier = (*KeywordClassifier)(nil)

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{extractor: extract.New()}
}

func (c *KeywordClassifier) Classify(_ context.Context, text string) (domain.Sentiment, error) {
	return c.extractor.KeywordSentiment(text), nil
}

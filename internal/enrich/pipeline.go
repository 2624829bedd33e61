// Package enrich turns raw messages into enriched ones. Extraction is
// local and infallible; symbol and sentiment lookups call out and degrade
// to fallbacks instead of blocking indexing.
package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chatwatch/internal/domain"
	"chatwatch/internal/extract"
	"chatwatch/internal/sentiment"
	"chatwatch/internal/symbols"
)

const defaultLookupTimeout = 5 * time.Second

// Options configures a Pipeline.
type Options struct {
	// Directory resolves ticker candidates. Nil disables directory lookup;
	// the regex fallback is used directly.
	Directory symbols.Directory

	// Classifier is the external sentiment service. Nil means the keyword
	// fallback runs for every message.
	Classifier sentiment.Classifier

	// LookupTimeout bounds each external call. Zero uses the default.
	LookupTimeout time.Duration

	Logger *zap.SugaredLogger

	// Now is overridable for tests.
	Now func() time.Time
}

// Pipeline enriches messages. Safe for concurrent use.
type Pipeline struct {
	extractor  *extract.Extractor
	directory  symbols.Directory
	classifier sentiment.Classifier
	fallback   *sentiment.KeywordClassifier
	timeout    time.Duration
	log        *zap.SugaredLogger
	now        func() time.Time
}

func NewPipeline(opts Options) *Pipeline {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = defaultLookupTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		extractor:  extract.New(),
		directory:  opts.Directory,
		classifier: opts.Classifier,
		fallback:   sentiment.NewKeywordClassifier(),
		timeout:    opts.LookupTimeout,
		log:        opts.Logger,
		now:        opts.Now,
	}
}

// Enrich never fails: external lookup errors degrade to fallbacks and set
// the matching degradation flag so re-enrichment can fill the gap later.
func (p *Pipeline) Enrich(ctx context.Context, m *domain.RawMessage) domain.EnrichedMessage {
	e := domain.Enrichment{
		Addresses:    p.extractor.Addresses(m.Text),
		URLs:         p.extractor.URLs(m.Text),
		Prices:       p.extractor.Prices(m.Text),
		Keywords:     p.extractor.Keywords(m.Text),
		EnrichedAtMs: p.now().UnixMilli(),
	}

	e.Symbols, e.SymbolsDegraded = p.resolveSymbols(ctx, m)
	e.Sentiment, e.SentimentDegraded = p.classify(ctx, m)

	return domain.EnrichedMessage{RawMessage: *m, Enrichment: e}
}

func (p *Pipeline) resolveSymbols(ctx context.Context, m *domain.RawMessage) ([]domain.SymbolMatch, bool) {
	candidates := p.extractor.SymbolCandidates(m.Text)
	if len(candidates) == 0 {
		return nil, false
	}

	if p.directory == nil {
		return regexMatches(candidates), false
	}

	lctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	matches, err := p.directory.Lookup(lctx, candidates)
	if err != nil {
		p.log.Warnw("symbol lookup failed, using regex candidates",
			"source_id", m.SourceID, "item_id", m.ItemID, "error", err)
		return regexMatches(candidates), true
	}
	if len(matches) == 0 {
		// Directory knows none of the candidates; keep them unverified.
		return regexMatches(candidates), false
	}
	return matches, false
}

// regexMatches wraps raw candidates as zero-confidence matches.
func regexMatches(candidates []string) []domain.SymbolMatch {
	out := make([]domain.SymbolMatch, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, domain.SymbolMatch{Symbol: c})
	}
	return out
}

func (p *Pipeline) classify(ctx context.Context, m *domain.RawMessage) (domain.Sentiment, bool) {
	if p.classifier == nil {
		s, _ := p.fallback.Classify(ctx, m.Text)
		return s, false
	}

	lctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	s, err := p.classifier.Classify(lctx, m.Text)
	if err == nil {
		return s, false
	}
	p.log.Warnw("sentiment classification failed, using keyword fallback",
		"source_id", m.SourceID, "item_id", m.ItemID, "error", err)

	if s, ferr := p.fallback.Classify(ctx, m.Text); ferr == nil {
		return s, true
	}
	return domain.SentimentUnknown, true
}

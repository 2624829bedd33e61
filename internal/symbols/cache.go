package symbols

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatwatch/internal/domain"
)

const cacheKeyPrefix = "symbols:"

// negative cache marker for candidates the directory does not know.
var cacheMiss = []byte("-")

// CachedDirectory decorates a Directory with a per-symbol Redis cache.
// Cache failures fall through to the inner directory; a broken cache must
// never break lookups.
type CachedDirectory struct {
	inner Directory
	rdb   *redis.Client
	ttl   time.Duration
	log   *zap.SugaredLogger
}

var _ Directory = (*CachedDirectory)(nil)

func NewCachedDirectory(inner Directory, rdb *redis.Client, ttl time.Duration, log *zap.SugaredLogger) *CachedDirectory {
	return &CachedDirectory{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedDirectory) Lookup(ctx context.Context, candidates []string) ([]domain.SymbolMatch, error) {
	var (
		matches []domain.SymbolMatch
		missing []string
	)

	for _, cand := range candidates {
		data, err := c.rdb.Get(ctx, cacheKeyPrefix+cand).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				c.log.Warnw("symbol cache read failed", "symbol", cand, "error", err)
			}
			missing = append(missing, cand)
			continue
		}
		if string(data) == string(cacheMiss) {
			continue
		}
		var m domain.SymbolMatch
		if err := json.Unmarshal(data, &m); err != nil {
			c.log.Warnw("symbol cache entry corrupt", "symbol", cand, "error", err)
			missing = append(missing, cand)
			continue
		}
		matches = append(matches, m)
	}

	if len(missing) == 0 {
		return matches, nil
	}

	fetched, err := c.inner.Lookup(ctx, missing)
	if err != nil {
		return nil, err
	}

	found := make(map[string]struct{}, len(fetched))
	for _, m := range fetched {
		found[m.Symbol] = struct{}{}
		if data, err := json.Marshal(m); err == nil {
			if err := c.rdb.Set(ctx, cacheKeyPrefix+m.Symbol, data, c.ttl).Err(); err != nil {
				c.log.Warnw("symbol cache write failed", "symbol", m.Symbol, "error", err)
			}
		}
	}
	for _, cand := range missing {
		if _, ok := found[cand]; ok {
			continue
		}
		if err := c.rdb.Set(ctx, cacheKeyPrefix+cand, cacheMiss, c.ttl).Err(); err != nil {
			c.log.Warnw("symbol cache write failed", "symbol", cand, "error", err)
		}
	}

	return append(matches, fetched...), nil
}

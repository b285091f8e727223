package query

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"insider-pipeline/internal/domain"
)

const statsKey = "index_stats"

// CachedStats memoizes DescribeStats for a short TTL.
type CachedStats struct {
	source StatsSource
	cache  *cache.Cache
}

// NewCachedStats wraps source. A non-positive ttl disables caching.
func NewCachedStats(source StatsSource, ttl time.Duration) *CachedStats {
	if ttl <= 0 {
		return &CachedStats{source: source}
	}
	return &CachedStats{
		source: source,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// DescribeStats returns cached stats or fetches fresh ones. Errors are not cached.
func (c *CachedStats) DescribeStats(ctx context.Context) (*domain.IndexStats, error) {
	if c.cache == nil {
		return c.source.DescribeStats(ctx)
	}
	if v, ok := c.cache.Get(statsKey); ok {
		return v.(*domain.IndexStats), nil
	}
	stats, err := c.source.DescribeStats(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(statsKey, stats)
	return stats, nil
}

// Invalidate drops the cached stats, e.g. after new vectors were indexed.
func (c *CachedStats) Invalidate() {
	if c.cache != nil {
		c.cache.Delete(statsKey)
	}
}

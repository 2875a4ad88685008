package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	cacheKeyLeaveTypes = "catalog:leave_types"
	cacheKeyCourses    = "catalog:courses"
	cachePatternHols   = "catalog:holidays:*"
)

func holidayCacheKey(year int) string {
	return fmt.Sprintf("catalog:holidays:%d", year)
}

type catalogStore interface {
	Load(ctx context.Context, key string, dest interface{}) (bool, error)
	Save(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Purge(ctx context.Context, pattern string) error
}

// CatalogCache is a read-through cache for catalog lists (leave types, courses, holidays).
// A nil *CatalogCache is valid and never hits. Store failures degrade to a miss and are
// only logged.
type CatalogCache struct {
	store   catalogStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCatalogCache constructs a CatalogCache over store. ttl <= 0 means ten minutes.
func NewCatalogCache(store catalogStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogCache{store: store, metrics: metrics, ttl: ttl, logger: logger}
}

// Lookup fills dest from the cache and reports whether it did.
func (c *CatalogCache) Lookup(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.store == nil {
		return false
	}
	started := time.Now()
	found, err := c.store.Load(ctx, key, dest)
	c.metrics.RecordCacheOperation(found && err == nil, time.Since(started))
	if err != nil {
		c.logger.Warn("catalog cache lookup failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

// Remember stores value under key.
func (c *CatalogCache) Remember(ctx context.Context, key string, value interface{}) {
	if c == nil || c.store == nil {
		return
	}
	started := time.Now()
	err := c.store.Save(ctx, key, value, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(started))
	if err != nil {
		c.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Forget drops every key matching one of the glob patterns.
func (c *CatalogCache) Forget(ctx context.Context, patterns ...string) {
	if c == nil || c.store == nil {
		return
	}
	for _, pattern := range patterns {
		if err := c.store.Purge(ctx, pattern); err != nil {
			c.logger.Warn("catalog cache purge failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

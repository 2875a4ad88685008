package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const purgeBatch = 200

// CatalogStore keeps JSON snapshots of catalog lists in Redis.
type CatalogStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCatalogStore wraps a connected Redis client.
func NewCatalogStore(client *redis.Client, logger *zap.Logger) *CatalogStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogStore{client: client, logger: logger}
}

// Load decodes the snapshot stored under key into dest. found is false when the key is absent
// or holds a payload that no longer decodes; such payloads are dropped.
func (s *CatalogStore) Load(ctx context.Context, key string, dest interface{}) (found bool, err error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("load catalog %s: %w", key, err)
	}
	if jsonErr := json.Unmarshal(raw, dest); jsonErr != nil {
		s.logger.Warn("dropping stale catalog snapshot", zap.String("key", key), zap.Error(jsonErr))
		s.client.Unlink(ctx, key)
		return false, nil
	}
	return true, nil
}

// Save stores value under key for ttl.
func (s *CatalogStore) Save(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode catalog %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save catalog %s: %w", key, err)
	}
	return nil
}

// Purge unlinks every key matching the glob pattern.
func (s *CatalogStore) Purge(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, purgeBatch).Result()
		if err != nil {
			return fmt.Errorf("scan catalog %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := s.client.Unlink(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("purge catalog %s: %w", pattern, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// PingContext reports whether Redis is reachable.
func (s *CatalogStore) PingContext(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (s *CatalogStore) Close() error {
	return s.client.Close()
}

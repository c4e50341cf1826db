package content

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mandirseva/mandir-platform/internal/observability/metrics"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// Reader is the read surface of the content store.
type Reader interface {
	GetByID(ctx context.Context, id string) (*Item, error)
	ListByType(ctx context.Context, contentType string) ([]Item, error)
}

// CachedStore is a read-through Redis cache in front of the DynamoDB store.
// Cache failures are never surfaced; every miss or Redis error falls through
// to the underlying store.
type CachedStore struct {
	inner   Reader
	redis   *redis.Client
	ttl     time.Duration
	metrics *metrics.ContentMetrics
	logger  *logging.Logger
}

// NewCachedStore wraps a content reader with a Redis cache.
func NewCachedStore(inner Reader, client *redis.Client, ttl time.Duration, m *metrics.ContentMetrics, logger *logging.Logger) *CachedStore {
	if inner == nil {
		panic("content: inner reader cannot be nil")
	}
	if client == nil {
		panic("content: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedStore{
		inner:   inner,
		redis:   client,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
	}
}

func itemKey(id string) string          { return "content:item:" + id }
func listKey(contentType string) string { return "content:type:" + contentType }

// GetByID returns the cached item or falls through to the store.
func (c *CachedStore) GetByID(ctx context.Context, id string) (*Item, error) {
	if raw, err := c.redis.Get(ctx, itemKey(id)).Bytes(); err == nil {
		var item Item
		if err := json.Unmarshal(raw, &item); err == nil {
			c.metrics.ObserveCache("hit")
			return &item, nil
		}
		c.metrics.ObserveCache("error")
	} else if err != redis.Nil {
		c.metrics.ObserveCache("error")
		c.logger.Warn("content cache read failed", "error", err, "id", id)
	} else {
		c.metrics.ObserveCache("miss")
	}

	item, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, itemKey(id), item)
	return item, nil
}

// ListByType returns the cached collection or falls through to the store.
func (c *CachedStore) ListByType(ctx context.Context, contentType string) ([]Item, error) {
	if raw, err := c.redis.Get(ctx, listKey(contentType)).Bytes(); err == nil {
		var items []Item
		if err := json.Unmarshal(raw, &items); err == nil {
			c.metrics.ObserveCache("hit")
			return items, nil
		}
		c.metrics.ObserveCache("error")
	} else if err != redis.Nil {
		c.metrics.ObserveCache("error")
		c.logger.Warn("content cache read failed", "error", err, "type", contentType)
	} else {
		c.metrics.ObserveCache("miss")
	}

	items, err := c.inner.ListByType(ctx, contentType)
	if err != nil {
		return nil, err
	}
	c.set(ctx, listKey(contentType), items)
	return items, nil
}

// Invalidate drops cache entries for an item and its category after a write.
func (c *CachedStore) Invalidate(ctx context.Context, id, contentType string) {
	keys := make([]string, 0, 2)
	if id != "" {
		keys = append(keys, itemKey(id))
	}
	if contentType != "" {
		keys = append(keys, listKey(contentType))
	}
	if len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("content cache invalidation failed", "error", err, "keys", keys)
	}
}

func (c *CachedStore) set(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("content cache write failed", "error", err, "key", key)
	}
}

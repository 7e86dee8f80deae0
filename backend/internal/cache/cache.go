// Package cache provides an optional redis-backed cache for report
// summaries. A nil *SummaryCache is valid and behaves as a miss on every
// lookup, so the gateway wires it unconditionally.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SummaryCache caches serialized summaries with a short TTL.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache connects to redis with short timeouts. Returns nil when
// addr is empty, which disables caching.
func NewSummaryCache(addr string, ttl time.Duration) *SummaryCache {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SummaryCache{client: client, ttl: ttl}
}

// Healthy verifies redis connectivity.
func (c *SummaryCache) Healthy(ctx context.Context) bool {
	if c == nil || c.client == nil {
		return false
	}
	return c.client.Ping(ctx).Err() == nil
}

// Key builds the cache key for a summary query.
func Key(stream string, semester int32, from, to string) string {
	return fmt.Sprintf("summary:%s:%d:%s:%s", stream, semester, from, to)
}

// Get unmarshals a cached entry into dest; ok is false on a miss or any
// redis error (the caller recomputes either way).
func (c *SummaryCache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// Put stores a computed entry; failures are ignored, the cache is advisory.
func (c *SummaryCache) Put(ctx context.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, c.ttl)
}

// InvalidateStream drops every cached summary for a stream/semester, called
// after a write changes the underlying records so dashboards do not serve
// corrected-away figures for the rest of the TTL. Failures are ignored; the
// TTL bounds staleness either way.
func (c *SummaryCache) InvalidateStream(ctx context.Context, stream string, semester int32) {
	if c == nil {
		return
	}
	pattern := fmt.Sprintf("summary:%s:%d:*", stream, semester)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
}

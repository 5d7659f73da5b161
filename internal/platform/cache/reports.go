package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ReportCache caches rendered report payloads in Redis. Concurrent requests
// for the same cold key collapse into a single compute via singleflight.
// A nil ReportCache is valid and computes every time, so handlers work the
// same with caching disabled.
type ReportCache struct {
	client *redis.Client
	group  singleflight.Group
	logger *slog.Logger
}

// NewReportCache wraps a Redis client for report caching.
func NewReportCache(client *redis.Client, logger *slog.Logger) *ReportCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportCache{client: client, logger: logger}
}

// GetOrCompute returns the cached payload for key, or computes, stores, and
// returns it. Redis failures degrade to computing directly.
func (c *ReportCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (any, error)) ([]byte, error) {
	if c == nil || c.client == nil {
		return computeJSON(ctx, compute)
	}
	cached, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Warn("report cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	payload, err, _ := c.group.Do(key, func() (any, error) {
		body, err := computeJSON(ctx, compute)
		if err != nil {
			return nil, err
		}
		if setErr := c.client.Set(ctx, key, body, ttl).Err(); setErr != nil {
			c.logger.Warn("report cache write failed", slog.String("key", key), slog.Any("error", setErr))
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return payload.([]byte), nil
}

// Invalidate drops cached keys after a write that changes report inputs.
func (c *ReportCache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("report cache invalidate failed", slog.Any("error", err))
	}
}

func computeJSON(ctx context.Context, compute func(context.Context) (any, error)) ([]byte, error) {
	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(value)
}

// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache stores query responses in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultPrefix namespaces every key.
	DefaultPrefix = "pharmacy:"

	// DefaultTTL is the lifetime of a cached response.
	DefaultTTL = 300 * time.Second

	scanCount = 100
)

// Cache stores JSON encoded values.
type Cache interface {
	// Get decodes the value of key into dest. It reports false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key with the default TTL.
	Set(ctx context.Context, key string, value any) error

	// Clear deletes every key of the cache.
	Clear(ctx context.Context) error
}

// NearbyKey is the key of a nearby duty pharmacies response.
func NearbyKey(lat, lng float64, radius int, day time.Time) string {
	return fmt.Sprintf("nearby:%.3f:%.3f:%d:%s", lat, lng, radius, day.Format(time.DateOnly))
}

// SearchKey is the key of a registry search response.
func SearchKey(lat, lng float64, radius, limit int) string {
	return fmt.Sprintf("search:%.3f:%.3f:%d:%d", lat, lng, radius, limit)
}

type redisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// Option configures the Redis cache.
type Option func(*redisCache)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(c *redisCache) { c.prefix = prefix }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *redisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewRedis creates a cache on top of client.
func NewRedis(client redis.UniversalClient, logger *zap.Logger, opts ...Option) Cache {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &redisCache{
		client: client,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
		logger: logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Open connects to the Redis server at url. When the server cannot be reached
// it logs a warning and returns a cache that stores nothing.
func Open(ctx context.Context, url string, logger *zap.Logger, opts ...Option) Cache {
	if logger == nil {
		logger = zap.NewNop()
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn("invalid redis url, caching disabled", zap.Error(err))

		return Noop{}
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, caching disabled", zap.String("addr", options.Addr), zap.Error(err))

		_ = client.Close()

		return Noop{}
	}

	logger.Info("redis cache enabled", zap.String("addr", options.Addr))

	return NewRedis(client, logger, opts...)
}

func (c *redisCache) fullKey(key string) string {
	return c.prefix + key
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("getting %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}

	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	return c.client.Set(ctx, c.fullKey(key), data, c.ttl).Err()
}

func (c *redisCache) Clear(ctx context.Context) error {
	match := c.prefix + "*"

	// DEL during SCAN makes the cursor skip keys; collect them first
	var (
		cursor uint64
		keys   []string
	)

	for {
		page, next, err := c.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return fmt.Errorf("scanning %s: %w", match, err)
		}

		keys = append(keys, page...)

		cursor = next
		if cursor == 0 {
			break
		}
	}

	var deleted int64

	for start := 0; start < len(keys); start += scanCount {
		end := min(start+scanCount, len(keys))

		n, err := c.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return fmt.Errorf("deleting keys: %w", err)
		}

		deleted += n
	}

	c.logger.Debug("cache cleared", zap.Int64("deleted", deleted))

	return nil
}

// Noop is a cache that never stores anything.
type Noop struct{}

// Get always misses.
func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }

// Set discards value.
func (Noop) Set(context.Context, string, any) error { return nil }

// Clear does nothing.
func (Noop) Clear(context.Context) error { return nil }

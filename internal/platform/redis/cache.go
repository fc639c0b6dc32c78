// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis

import (
	stdctx "context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/warden/internal/platform/constants"
)

// Cache is a best-effort key-value store in front of PostgreSQL.
//
// A Cache built with a nil client is valid: every method is a no-op that
// reports a miss. Redis errors are logged and likewise reported as misses,
// so callers always fall back to the durable store.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewCache wraps client, which may be nil.
func NewCache(client *redis.Client, logger *slog.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

// Enabled reports whether a live client is attached.
func (cache *Cache) Enabled() bool {
	return cache != nil && cache.client != nil
}

/*
Set stores value under key for ttl and, when tag is non-empty, records the key
in the tag's member set.

Returns:
  - bool: true when the write reached Redis
*/
func (cache *Cache) Set(context stdctx.Context, key, value string, ttl time.Duration, tag string) bool {
	if !cache.Enabled() {
		return false
	}

	_, err := cache.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.Set(context, key, value, ttl)
		if tag != "" {
			pipe.SAdd(context, tagKey(tag), key)
		}
		return nil
	})

	if err != nil {
		cache.logger.WarnContext(context, "cache_set_failed", slog.String("key", key), slog.Any("error", err))
		return false
	}

	return true
}

/*
Get returns the value stored under key.

Returns:
  - string: the cached value
  - bool: false on a miss, a disabled cache, or a Redis error
*/
func (cache *Cache) Get(context stdctx.Context, key string) (string, bool) {
	if !cache.Enabled() {
		return "", false
	}

	value, err := cache.client.Get(context, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			cache.logger.WarnContext(context, "cache_get_failed", slog.String("key", key), slog.Any("error", err))
		}
		return "", false
	}

	return value, true
}

// Delete removes key and its membership in tag (when tag is non-empty).
func (cache *Cache) Delete(context stdctx.Context, key string, tag string) bool {
	if !cache.Enabled() {
		return false
	}

	_, err := cache.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.Del(context, key)
		if tag != "" {
			pipe.SRem(context, tagKey(tag), key)
		}
		return nil
	})

	if err != nil {
		cache.logger.WarnContext(context, "cache_delete_failed", slog.String("key", key), slog.Any("error", err))
		return false
	}

	return true
}

// SetJSON is [Cache.Set] for a JSON-encoded value.
func (cache *Cache) SetJSON(context stdctx.Context, key string, value any, ttl time.Duration, tag string) bool {
	if !cache.Enabled() {
		return false
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		cache.logger.WarnContext(context, "cache_encode_failed", slog.String("key", key), slog.Any("error", err))
		return false
	}

	return cache.Set(context, key, string(encoded), ttl, tag)
}

// GetJSON is [Cache.Get] decoding into target. Undecodable entries are evicted.
func (cache *Cache) GetJSON(context stdctx.Context, key string, target any) bool {
	raw, found := cache.Get(context, key)
	if !found {
		return false
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		cache.logger.WarnContext(context, "cache_decode_failed", slog.String("key", key), slog.Any("error", err))
		cache.Delete(context, key, "")
		return false
	}

	return true
}

func tagKey(tag string) string {
	return constants.RedisPrefixTag + tag
}

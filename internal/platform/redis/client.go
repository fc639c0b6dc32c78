// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis provides a managed client and a nil-tolerant cache for volatile data.

It is used for read-through copies of sessions and one-time codes. Redis is an
accelerant only: when it is unreachable at startup the server runs with a nil
client and every [Cache] call becomes a no-op.

Core Responsibilities:

  - Volatility: Handles data with TTL (Time-To-Live).
  - Grouping: Tags collect keys into sets for bulk inspection.
  - Degradation: Connection failures never fail a request.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Opinionated default timeouts for Redis operations.
const (
	dialTimeout     = 5 * time.Second
	readTimeout     = 2 * time.Second
	writeTimeout    = 2 * time.Second
	pingTimeout     = 2 * time.Second
	maxRetries      = 3
	minRetryBackoff = 100 * time.Millisecond
	maxRetryBackoff = 512 * time.Millisecond
	connectAttempts = 3
)

// NewClient parses a Redis URL and returns a ready-to-use client.
//
// The initial ping is attempted [connectAttempts] times with a linear backoff.
// Callers decide whether a failure is fatal; cmd/api downgrades it to a
// warning and continues without a cache.
//
// # Parameters
//   - context: Context for the initial ping.
//   - redisURL: Redis connection URL.
//   - logger: Structured logger for connection events.
func NewClient(context stdctx.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	// Pool configuration Tuning
	options.PoolSize = 10
	options.MinIdleConns = 2
	options.MaxIdleConns = 5

	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout
	options.MaxRetries = maxRetries
	options.MinRetryBackoff = minRetryBackoff
	options.MaxRetryBackoff = maxRetryBackoff

	client := redis.NewClient(options)

	for attempt := 1; ; attempt++ {
		err = Ping(context, client)
		if err == nil {
			break
		}

		logger.Warn("redis_connect_attempt_failed",
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)

		if attempt == connectAttempts {
			_ = client.Close()
			return nil, err
		}

		select {
		case <-time.After(minRetryBackoff * time.Duration(attempt)):
		case <-context.Done():
			_ = client.Close()
			return nil, fmt.Errorf("redis: connect cancelled: %w", context.Err())
		}
	}

	logger.Info("redis client connected",
		slog.String("addr", options.Addr),
		slog.Int("pool_size", options.PoolSize),
	)

	return client, nil
}

// Ping verifies that the Redis client is healthy.
func Ping(context stdctx.Context, client *redis.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}

// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/anvubui/mirava/internal/platform/constants"
)

// RedisViewCounter implements [ViewCounter] using Redis INCR.
//
// View counts are engagement telemetry, not ledger data: they live entirely
// in Redis and are not persisted to Postgres.
type RedisViewCounter struct {
	client *redis.Client
}

// NewRedisViewCounter creates a new Redis-backed view counter.
func NewRedisViewCounter(client *redis.Client) *RedisViewCounter {
	return &RedisViewCounter{client: client}
}

// viewKey builds the per-title counter key.
func viewKey(contentID string) string {
	return constants.RedisPrefixContentViews + contentID
}

/*
Increment bumps a title's view counter and returns the new value.

Parameters:
  - context: context.Context
  - contentID: string

Returns:
  - int64: The counter value after the increment
  - error: Execution failures
*/
func (counter *RedisViewCounter) Increment(context context.Context, contentID string) (int64, error) {
	count, err := counter.client.Incr(context, viewKey(contentID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_view_counter_incr_failed: %w", err)
	}
	return count, nil
}

/*
Get reads a title's view counter without touching it.

Parameters:
  - context: context.Context
  - contentID: string

Returns:
  - int64: Current counter value (zero when never viewed)
  - error: Execution failures
*/
func (counter *RedisViewCounter) Get(context context.Context, contentID string) (int64, error) {
	count, err := counter.client.Get(context, viewKey(contentID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis_view_counter_get_failed: %w", err)
	}
	return count, nil
}

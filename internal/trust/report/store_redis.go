// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/anvubui/mirava/internal/platform/constants"
)

// RedisCountCache implements [CountCache] using Redis.
//
// The counter feeds the staff dashboard badge; a short TTL bounds staleness
// while keeping COUNT(*) off the hot path.
type RedisCountCache struct {
	client *redis.Client
}

// NewRedisCountCache creates a new Redis-backed open-report counter cache.
func NewRedisCountCache(client *redis.Client) *RedisCountCache {
	return &RedisCountCache{client: client}
}

/*
GetOpenCount reads the cached open-report counter.

Description: A cache miss returns found == false without an error so the
caller falls through to the database.

Parameters:
  - context: context.Context

Returns:
  - int64: Cached count (valid only when found)
  - bool: Whether a fresh cached value existed
  - error: Connectivity failures
*/
func (cache *RedisCountCache) GetOpenCount(context context.Context) (int64, bool, error) {
	raw, err := cache.client.Get(context, constants.RedisPrefixOpenReports).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis_report_count_get_failed: %w", err)
	}

	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Corrupt entry; treat as a miss and let the next Set repair it.
		return 0, false, nil
	}

	return count, true, nil
}

/*
SetOpenCount caches the open-report counter with its freshness TTL.

Parameters:
  - context: context.Context
  - count: int64

Returns:
  - error: Execution failures
*/
func (cache *RedisCountCache) SetOpenCount(context context.Context, count int64) error {
	err := cache.client.Set(context, constants.RedisPrefixOpenReports,
		strconv.FormatInt(count, 10), constants.OpenReportCountTTL).Err()
	if err != nil {
		return fmt.Errorf("redis_report_count_set_failed: %w", err)
	}
	return nil
}

/*
InvalidateOpenCount drops the cached counter after a file or resolve.

Parameters:
  - context: context.Context

Returns:
  - error: Execution failures
*/
func (cache *RedisCountCache) InvalidateOpenCount(context context.Context) error {
	if err := cache.client.Del(context, constants.RedisPrefixOpenReports).Err(); err != nil {
		return fmt.Errorf("redis_report_count_invalidate_failed: %w", err)
	}
	return nil
}

// Package dedup implements the time-windowed duplicate suppression cache.
//
// This file provides the Redis backend. SET with NX and EX gives the
// insert-if-absent-with-TTL primitive in a single server-side operation, so
// the race property holds across any number of application replicas.
package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// sentinel is the value stored under claimed keys. Only key presence
// matters; the value is never read back.
const sentinel = "1"

// RedisCache is a Cache backed by a shared Redis instance. The zero value is
// not usable; construct it with NewRedisCache.
type RedisCache struct {
	rdb redis.UniversalClient
}

// NewRedisCache wraps an existing Redis client. The caller owns the client's
// lifecycle (including Close).
func NewRedisCache(rdb redis.UniversalClient) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Claim performs SET key sentinel NX EX ttl. SetNX only writes (and only
// starts the TTL) when the key is absent, so a losing claim can neither
// overwrite the entry nor extend its expiry.
//
// A transport or server error is returned as-is; callers decide the
// availability policy (the submission service fails closed).
func (c *RedisCache) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, sentinel, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

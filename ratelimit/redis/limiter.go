// Package redislimiter is a Redis-backed sliding-window limiter for login
// attempts shared across instances.
package redislimiter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter keeps one ZSET of attempt times per key and bucket.
type Limiter struct {
	rdb    redis.Cmdable
	prefix string
	limits map[string]Limit
}

func New(rdb redis.Cmdable, limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{rdb: rdb, prefix: "authmodule:rl:", limits: limits}
}

func (l *Limiter) get(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 100, Window: time.Minute}
}

func (l *Limiter) key(bucket, key string) string {
	return l.prefix + bucket + ":" + key
}

// Allow records an attempt and reports whether it is within the limit.
// Denied attempts are removed again so they do not extend the lockout.
func (l *Limiter) Allow(ctx context.Context, bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	lim := l.get(bucket)
	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10)
	start := now.Add(-lim.Window).UnixNano()
	k := l.key(bucket, key)

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", "("+strconv.FormatInt(start+1, 10))
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, k)
	pipe.Expire(ctx, k, lim.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redislimiter: %w", err)
	}
	if count.Val() > int64(lim.Limit) {
		l.rdb.ZRem(ctx, k, member)
		return false, nil
	}
	return true, nil
}

// Reset drops every attempt for key in bucket.
func (l *Limiter) Reset(ctx context.Context, bucket, key string) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, l.key(bucket, key)).Err()
}

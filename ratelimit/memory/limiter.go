// Package memorylimiter is an in-process sliding-window limiter for login
// attempts.
package memorylimiter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

type bucketState struct {
	// attempt times, oldest first
	attempts []time.Time
}

// Limiter is intended as a single-node fallback when Redis is unavailable.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	buckets map[string]*bucketState
	now     func() time.Time
}

// New constructs a limiter with the provided per-bucket limits. A "default"
// entry applies to buckets without their own limit.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{
		limits:  limits,
		buckets: make(map[string]*bucketState),
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
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

// Allow records an attempt for key in bucket and reports whether it is within
// the limit. Denied attempts are not recorded.
func (l *Limiter) Allow(_ context.Context, bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	lim := l.get(bucket)
	now := l.now()
	windowStart := now.Add(-lim.Window)
	limitKey := key + ":" + bucket

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[limitKey]
	if !ok {
		b = &bucketState{}
		l.buckets[limitKey] = b
	}

	ts := b.attempts
	i := 0
	for i < len(ts) && !ts[i].After(windowStart) {
		i++
	}
	ts = ts[i:]

	if len(ts) >= lim.Limit {
		b.attempts = ts
		return false, nil
	}
	b.attempts = append(ts, now)
	return true, nil
}

// Reset forgets every attempt for key in bucket, e.g. after a successful login.
func (l *Limiter) Reset(_ context.Context, bucket, key string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	delete(l.buckets, key+":"+bucket)
	l.mu.Unlock()
	return nil
}

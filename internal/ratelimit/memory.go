package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryBucket is a process-local sliding window. It backs single-instance
// deployments and serves as the fallback while Redis is unavailable.
type MemoryBucket struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{windows: make(map[string][]time.Time), now: time.Now}
}

func (b *MemoryBucket) Allow(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	stamps := prune(b.windows[key], now.Add(-window))
	if len(stamps) >= limit {
		b.windows[key] = stamps
		resetAt := stamps[0].Add(window)
		return &Result{Limit: limit, ResetAt: resetAt, RetryAfter: retryAfter(resetAt, now)}, nil
	}

	stamps = append(stamps, now)
	b.windows[key] = stamps
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(stamps),
		ResetAt:   stamps[0].Add(window),
	}, nil
}

// prune drops timestamps at or before cutoff. stamps is sorted.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	if i == len(stamps) {
		return nil
	}
	return stamps[i:]
}

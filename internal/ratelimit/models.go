// Package ratelimit throttles HTTP traffic with sliding-window buckets keyed by
// client IP or caller address.
package ratelimit

import (
	"context"
	"time"
)

// Class groups endpoints that share a limit.
type Class string

const (
	ClassRead  Class = "read"
	ClassWrite Class = "write"
)

// Limit allows Requests per Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// DefaultLimits returns the production limits per class.
func DefaultLimits() map[Class]Limit {
	return map[Class]Limit{
		ClassRead:  {Requests: 300, Window: time.Minute},
		ClassWrite: {Requests: 60, Window: time.Minute},
	}
}

// Result is the outcome of one bucket check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is whole seconds until a slot frees up. Zero when allowed.
	RetryAfter int
}

// Bucket counts requests in a sliding window.
type Bucket interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

func ipKey(class Class, ip string) string {
	return "ip:" + string(class) + ":" + ip
}

func callerKey(class Class, caller string) string {
	return "caller:" + string(class) + ":" + caller
}

func retryAfter(resetAt, now time.Time) int {
	secs := int(resetAt.Sub(now).Seconds())
	if resetAt.Sub(now) > time.Duration(secs)*time.Second {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}

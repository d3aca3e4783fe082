package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "clubdomains:ratelimit:"

// slidingWindow trims the sorted set to the window, then admits the request
// when there is room. Returns {allowed, count, oldest_ms}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
local allowed = 0
if count < limit then
  redis.call("ZADD", key, now, member)
  count = count + 1
  allowed = 1
end
redis.call("PEXPIRE", key, window)
local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
local oldestMs = now
if oldest[2] then
  oldestMs = tonumber(oldest[2])
end
return {allowed, count, oldestMs}
`)

// RedisBucket shares windows across instances through sorted sets scored by
// request time in milliseconds.
type RedisBucket struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisBucket(client redis.UniversalClient) *RedisBucket {
	return &RedisBucket{client: client, now: time.Now}
}

func (b *RedisBucket) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := b.now()
	vals, err := slidingWindow.Run(ctx, b.client, []string{redisKeyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("rate limit script: unexpected reply %v", vals)
	}

	resetAt := time.UnixMilli(vals[2]).Add(window)
	res := &Result{Limit: limit, ResetAt: resetAt}
	if vals[0] == 1 {
		res.Allowed = true
		res.Remaining = limit - int(vals[1])
		return res, nil
	}
	res.RetryAfter = retryAfter(resetAt, now)
	return res, nil
}

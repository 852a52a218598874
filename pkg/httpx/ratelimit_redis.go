package httpx

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and takes one token atomically. It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals)
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RedisLimiter is a token bucket shared by every instance of the service.
type RedisLimiter struct {
	client   redis.Scripter
	key      string
	capacity int
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
}

// NewRedisLimiter builds a limiter whose buckets live under prefix:scope:*.
// One token is refilled every Window/RequestsPerWindow.
func NewRedisLimiter(client redis.Scripter, prefix, scope string, config RateLimitConfig) *RedisLimiter {
	interval := config.Window / time.Duration(max(config.RequestsPerWindow, 1))
	return &RedisLimiter{
		client:   client,
		key:      prefix + ":" + scope,
		capacity: max(config.Burst, 1),
		interval: interval,
		ttl:      max(config.Window*2, time.Second),
		now:      time.Now,
	}
}

// RedisLimiters returns a factory of Redis-backed limiters.
func RedisLimiters(client redis.Scripter, prefix string) LimiterFactory {
	return func(config RateLimitConfig, scope string) Limiter {
		return NewRedisLimiter(client, prefix, scope, config)
	}
}

// BucketKey is the Redis key holding the bucket for key.
func (l *RedisLimiter) BucketKey(key string) string {
	return l.key + ":" + key
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	vals, err := tokenBucketScript.Run(ctx, l.client, []string{l.BucketKey(key)},
		l.now().UnixMilli(),
		l.capacity,
		l.interval.Milliseconds(),
		int64(l.ttl/time.Second),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis limiter: %w", err)
	}
	if len(vals) != 3 {
		return false, 0, fmt.Errorf("redis limiter: unexpected reply of %d values", len(vals))
	}

	if vals[0] == 1 {
		return true, 0, nil
	}
	return false, time.Duration(vals[2]) * time.Millisecond, nil
}

// String is used in log lines.
func (l *RedisLimiter) String() string {
	return l.key + " capacity=" + strconv.Itoa(l.capacity) + " interval=" + l.interval.String()
}

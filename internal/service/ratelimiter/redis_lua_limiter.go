// Package ratelimiter implements a Redis-backed token bucket used to cap
// outbound LLM provider calls per tag.
package ratelimiter

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	obs "github.com/resumehq/resume-evaluator/internal/observability"
)

// Limiter answers whether one more call may proceed for a logical key.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// BucketConfig describes one token bucket.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

// PerMinute builds a bucket allowing perMinute calls with smooth refill.
// Non-positive disables the bucket.
func PerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

// RedisLua is a token-bucket limiter whose refill and take are one atomic
// Lua script, so concurrent instances share a single budget per key.
type RedisLua struct {
	redis   *redis.Client
	script  *redis.Script
	mu      sync.RWMutex
	buckets map[string]BucketConfig
}

// NewRedisLua creates a limiter. A nil client yields a limiter that always
// allows, which keeps single-node deployments without Redis working.
func NewRedisLua(rdb *redis.Client, buckets map[string]BucketConfig) *RedisLua {
	if buckets == nil {
		buckets = map[string]BucketConfig{}
	}
	return &RedisLua{
		redis:   rdb,
		script:  redis.NewScript(luaTokenBucket),
		buckets: buckets,
	}
}

const luaTokenBucket = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] ~= false and data[1] ~= nil then
  tokens = tonumber(data[1])
end
if data[2] ~= false and data[2] ~= nil then
  last_refill = tonumber(data[2])
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end

tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_after = 0

if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
elseif refill_rate > 0 then
  retry_after = (1 - tokens) / refill_rate
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", now)
redis.call("EXPIRE", key, 120)

-- Redis truncates Lua numbers to integers on the way out, which would
-- round a sub-second wait down to zero. Ship it as a string instead.
return { allowed, tostring(retry_after) }
`

// Allow takes one token from the key's bucket. Keys without a configured
// bucket, a nil Redis client, or Redis failures all allow the call; the
// limiter protects provider quotas, it must never become the outage itself.
func (l *RedisLua) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l == nil || l.redis == nil {
		return true, 0, nil
	}
	l.mu.RLock()
	cfg, ok := l.buckets[key]
	l.mu.RUnlock()
	if !ok || cfg.Capacity <= 0 || cfg.RefillRate <= 0 {
		return true, 0, nil
	}

	nowSec := float64(time.Now().UnixNano()) / 1e9
	res, err := l.script.Run(ctx, l.redis, []string{"rate:" + key}, cfg.Capacity, cfg.RefillRate, nowSec).Result()
	if err != nil {
		obs.LoggerFromContext(ctx).Error("rate limiter script failed", "key", key, "error", err)
		return true, 0, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		obs.LoggerFromContext(ctx).Error("rate limiter unexpected script result", "key", key, "result", res)
		return true, 0, nil
	}

	allowed := toInt64(vals[0]) == 1
	retryAfter := time.Duration(toFloat64(vals[1]) * float64(time.Second))
	return allowed, retryAfter, nil
}

// SetBucket updates or creates the bucket for key. Safe for concurrent use.
func (l *RedisLua) SetBucket(key string, cfg BucketConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key] = cfg
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

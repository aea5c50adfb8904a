package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the sorted set to the window, admits the request when
// under the limit, and returns {allowed, count, oldest score}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  return {1, count + 1, 0}
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {0, count, tonumber(oldest[2])}
`)

// RedisLimiter shares the sliding window across processes.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, cfg Config, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "sitecms:ratelimit:"
	}
	return &RedisLimiter{client: client, cfg: cfg.normalized(), prefix: prefix, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now().UnixMilli()
	window := l.cfg.Window.Milliseconds()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	values, err := slidingWindow.Run(ctx, l.client, []string{l.prefix + key}, now, window, l.cfg.Max, member).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit: %w", err)
	}
	if len(values) != 3 {
		return Decision{}, fmt.Errorf("redis rate limit: unexpected reply %v", values)
	}
	if values[0] == 1 {
		return Decision{Allowed: true, Remaining: l.cfg.Max - int(values[1])}, nil
	}
	retry := time.Duration(values[2]+window-now) * time.Millisecond
	return Decision{Allowed: false, RetryAfter: retry}, nil
}

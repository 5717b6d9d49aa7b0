package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"plaques2gallery/internal/records"
)

var acquireScript = redis.NewScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
if used >= tonumber(ARGV[1]) then
  return 0
end
redis.call('INCR', KEYS[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

var releaseScript = redis.NewScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
if used > 0 then
  redis.call('DECR', KEYS[1])
end
return 1
`)

var exhaustScript = redis.NewScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
if used < tonumber(ARGV[1]) then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
end
return 1
`)

// RedisBackend keeps usage in Redis so several hosts can share one key.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisBackend connects to redisURL and verifies the connection. Keys
// expire after ttl, which should exceed the window length.
func NewRedisBackend(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*RedisBackend, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisBackend{client: client, prefix: prefix, ttl: ttl}, nil
}

// Close releases the Redis connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) key(windowStart time.Time) string {
	return b.prefix + ":" + strconv.FormatInt(windowStart.Unix(), 10)
}

func (b *RedisBackend) ttlMillis() int64 {
	return b.ttl.Milliseconds()
}

func (b *RedisBackend) TryAcquire(ctx context.Context, windowStart time.Time, limit int) (bool, error) {
	res, err := acquireScript.Run(ctx, b.client, []string{b.key(windowStart)}, limit, b.ttlMillis()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (b *RedisBackend) Release(ctx context.Context, windowStart time.Time) error {
	return releaseScript.Run(ctx, b.client, []string{b.key(windowStart)}).Err()
}

func (b *RedisBackend) Exhaust(ctx context.Context, windowStart time.Time, limit int) error {
	return exhaustScript.Run(ctx, b.client, []string{b.key(windowStart)}, limit, b.ttlMillis()).Err()
}

func (b *RedisBackend) Usage(ctx context.Context, windowStart time.Time, limit int) (records.QuotaWindow, error) {
	usage := records.QuotaWindow{WindowStart: windowStart, Limit: limit}
	used, err := b.client.Get(ctx, b.key(windowStart)).Int()
	if errors.Is(err, redis.Nil) {
		return usage, nil
	}
	if err != nil {
		return usage, err
	}
	usage.Used = used
	return usage, nil
}

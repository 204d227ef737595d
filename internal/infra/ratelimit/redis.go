package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coffeeshop/internal/domain"

	"github.com/redis/go-redis/v9"
)

const defaultRedisDialTimeout = 2 * time.Second

// RedisLimiter shares fixed windows between replicas. The first request of a window
// sets the key's expiry, so the window is anchored on that request.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces the counters when the redis instance is shared.
	Prefix      string
	DialTimeout time.Duration
	Now         func() time.Time
}

// NewRedisLimiter connects and pings redis; an unreachable server is an error so the
// caller can pick another limiter.
func NewRedisLimiter(ctx context.Context, cfg RedisConfig) (*RedisLimiter, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultRedisDialTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		MaxRetries:  -1,
	})
	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return &RedisLimiter{client: client, prefix: cfg.Prefix, now: cfg.Now}, nil
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	windowMillis := max(window.Milliseconds(), 1000)
	res, err := fixedWindowScript.Run(ctx, r.client, []string{r.prefix + key}, windowMillis).Int64Slice()
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("redis rate limit: %w", err)
	}
	if len(res) != 2 {
		return domain.RateLimitDecision{}, fmt.Errorf("redis rate limit: unexpected reply %v", res)
	}
	count, ttl := res[0], res[1]
	resetAt := r.now()
	if ttl > 0 {
		resetAt = resetAt.Add(time.Duration(ttl) * time.Millisecond)
	}
	return domain.RateLimitDecision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: max(limit-int(count), 0),
		ResetAt:   resetAt,
	}, nil
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}

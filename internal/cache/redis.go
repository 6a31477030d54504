package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Redis is a Store over a shared redis instance, so every API replica sees the same entries.
// Errors are logged and treated as misses; the cache never fails a request.
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedis(rdb *redis.Client, ttl time.Duration, prefix string) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Redis{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.rdb.Get(ctx, c.prefix+key).Bytes()

	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "cache get failed", "key", key, "err", err)
		}
		return nil, false
	}

	return b, true
}

func (c *Redis) Set(ctx context.Context, key string, val []byte) {
	err := c.rdb.Set(ctx, c.prefix+key, val, c.ttl).Err()

	if err != nil {
		slog.WarnContext(ctx, "cache set failed", "key", key, "err", err)
	}
}

// Version reads a plain counter; it has no TTL so a bump is never forgotten.
func (c *Redis) Version(ctx context.Context, key string) (int64, error) {
	v, err := c.rdb.Get(ctx, c.prefix+key).Int64()

	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	return v, err
}

func (c *Redis) Bump(ctx context.Context, key string) error {
	return c.rdb.Incr(ctx, c.prefix+key).Err()
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

package storage

import (
	"context"
	"errors"
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

// RedisProvider keeps local storage in redis so it survives restarts and is
// shared between replicas.
type RedisProvider struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisProvider(rdb *redis.Client, ttl time.Duration) *RedisProvider {
	return &RedisProvider{rdb: rdb, ttl: ttl}
}

func (p *RedisProvider) Name() string { return "redis" }

func (p *RedisProvider) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func (p *RedisProvider) Open(_ CookieJar, device string) LocalStorage {
	return &keyed{
		backend: p.Name(),
		device:  device,
		get: func(ctx context.Context, k string) (string, bool, error) {
			v, err := p.rdb.Get(ctx, k).Result()
			if errors.Is(err, redis.Nil) {
				return "", false, nil
			}
			if err != nil {
				return "", false, err
			}
			return v, true, nil
		},
		set: func(ctx context.Context, k, v string) error {
			return p.rdb.Set(ctx, k, v, p.ttl).Err()
		},
		del: func(ctx context.Context, k string) error {
			return p.rdb.Del(ctx, k).Err()
		},
	}
}

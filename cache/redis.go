package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache backed by a Redis server. Keys are namespaced with Prefix.
type Redis struct {
	client *redis.Client
	Prefix string
}

// NewRedis parses redisURL, connects and pings the server.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.MinIdleConns = 1
	opt.ConnMaxIdleTime = 30 * time.Minute
	client := redis.NewClient(opt)

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connection established", slog.Int("database", opt.DB), slog.String("component", "cache"))
	return &Redis{client: client, Prefix: "aswo:"}, nil
}

// NewRedisFromClient wraps an existing client; used in tests.
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client, Prefix: "aswo:"}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.Prefix+key, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.Prefix+key).Err()
}

// Health pings the server.
func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

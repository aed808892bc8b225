package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "emochat:blob:"

// Redis is a Store backed by a Redis instance.
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis connects to Redis and verifies the connection. A zero ttl keeps
// blobs until explicitly deleted.
func NewRedis(url string, ttl time.Duration, logger *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl, logger: logger}, nil
}

func (r *Redis) Put(ctx context.Context, key string, data []byte) error {
	if err := r.rdb.Set(ctx, keyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("blob put %s: %w", key, err)
	}
	r.logger.Debug("blob stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blob get %s: %w", key, err)
	}
	return data, nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("blob delete %s: %w", key, err)
	}
	return nil
}

// Close shuts down the Redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

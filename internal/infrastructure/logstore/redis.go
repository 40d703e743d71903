package logstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/aurelius-backend/internal/infrastructure/config"
)

// RedisStore implements Store on a Redis server
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection with a ping
func NewRedisStore(cfg *config.RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.URL,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("redis log store initialized",
		zap.String("addr", cfg.URL),
		zap.Int("db", cfg.DB),
		zap.Int("pool_size", cfg.PoolSize))

	return &RedisStore{
		client: client,
		logger: logger,
	}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound{Key: key}
		}
		r.logger.Error("redis get failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("redis get failed: %w", err)
	}

	return result, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Error("redis set failed",
			zap.String("key", key),
			zap.Duration("ttl", ttl),
			zap.Error(err))
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (r *RedisStore) HGet(ctx context.Context, key, field string) (string, error) {
	result, err := r.client.HGet(ctx, key, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound{Key: key + "#" + field}
		}
		r.logger.Error("redis hget failed", zap.String("key", key), zap.String("field", field), zap.Error(err))
		return "", fmt.Errorf("redis hget failed: %w", err)
	}

	return result, nil
}

func (r *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	result, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		r.logger.Error("redis hgetall failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	return result, nil
}

func (r *RedisStore) HSet(ctx context.Context, key string, fields map[string]string) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}

	args := make([]interface{}, 0, len(fields)*2)
	for field, value := range fields {
		args = append(args, field, value)
	}

	created, err := r.client.HSet(ctx, key, args...).Result()
	if err != nil {
		r.logger.Error("redis hset failed", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("redis hset failed: %w", err)
	}

	return created, nil
}

func (r *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	result, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		r.logger.Error("redis incr failed", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("redis incr failed: %w", err)
	}

	return result, nil
}

func (r *RedisStore) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("lpush requires at least one value")
	}

	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}

	length, err := r.client.LPush(ctx, key, args...).Result()
	if err != nil {
		r.logger.Error("redis lpush failed", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("redis lpush failed: %w", err)
	}

	return length, nil
}

func (r *RedisStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	result, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		r.logger.Error("redis lrange failed",
			zap.String("key", key),
			zap.Int64("start", start),
			zap.Int64("stop", stop),
			zap.Error(err))
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}

	return result, nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("redis delete failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Backend() string {
	return "redis"
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("redis close failed", zap.Error(err))
		return fmt.Errorf("redis close failed: %w", err)
	}

	r.logger.Info("redis log store connection closed")
	return nil
}

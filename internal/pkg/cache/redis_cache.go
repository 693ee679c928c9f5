package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/3Eeeecho/go-pan/internal/pkg/logger"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		logger.Error("Failed to INCR key in Redis", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("redis incr failed: %w", err)
	}
	if n == 1 && ttl > 0 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			logger.Error("Failed to set expiration for key in Redis", zap.String("key", key), zap.Duration("ttl", ttl), zap.Error(err))
			return n, fmt.Errorf("redis expire failed: %w", err)
		}
	}
	return n, nil
}

func (r *RedisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		logger.Error("Failed to get TTL for key in Redis", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("redis ttl failed: %w", err)
	}
	// -2 表示 key 不存在
	if ttl == -2 || ttl == -2*time.Second {
		return 0, ErrCacheMiss
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		logger.Error("Failed to delete keys from Redis", zap.Strings("keys", keys), zap.Error(err))
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

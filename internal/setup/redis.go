package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/3Eeeecho/go-pan/internal/config"
	"github.com/3Eeeecho/go-pan/internal/pkg/cache"
	"github.com/3Eeeecho/go-pan/internal/pkg/logger"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// InitRedis 建立 Redis 连接并 Ping 一次
func InitRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("Connected to Redis successfully!", zap.String("addr", cfg.Addr))
	return client, nil
}

// InitCache 启用 Redis 时返回 RedisCache，否则返回进程内缓存
// 返回的 closer 在进程退出时调用
func InitCache(ctx context.Context, cfg *config.RedisConfig) (cache.Cache, func(), error) {
	if !cfg.Enabled {
		mem := cache.NewMemoryCache(time.Minute)
		logger.Info("Redis disabled, using in-process cache")
		return mem, mem.Close, nil
	}
	client, err := InitRedis(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := client.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
			return
		}
		logger.Info("Redis connection closed.")
	}
	return cache.NewRedisCache(client), closer, nil
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/carelink/patient-portal/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// NewPostgresPool создаёт пул и проверяет соединение
func NewPostgresPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// NewRedisClient возвращает nil, если кэш не настроен.
// Недоступный Redis не мешает старту: сервис работает без кэша
func NewRedisClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if !cfg.CacheEnabled() {
		logger.Info("Slot cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis is unreachable, slot cache disabled",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err))
		_ = client.Close()
		return nil
	}

	logger.Info("Slot cache enabled",
		zap.String("addr", cfg.RedisAddr),
		zap.Duration("ttl", cfg.SlotCacheTTL))
	return client
}

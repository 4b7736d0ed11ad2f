package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/authgate/jwt-auth/internal/config"
)

// Redis wraps a go-redis client. A single address yields a plain client,
// several yield a cluster client, and a master name selects sentinel failover.
type Redis struct {
	Client redis.UniversalClient
}

// NewRedis connects to Redis and fails when the server cannot be reached.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Redis, error) {
	addrs := cfg.Addrs()
	if len(addrs) == 0 {
		return nil, errors.New("REDIS_ADDR is required for the redis user store")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:      addrs,
		MasterName: cfg.MasterName,
		Password:   cfg.Password,
		DB:         cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("connected to redis", zap.Strings("addrs", addrs), zap.Int("db", cfg.DB))
	return &Redis{Client: client}, nil
}

// Close closes the client. It is safe on a nil receiver.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

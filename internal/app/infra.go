package app

import (
	"context"

	"github.com/jyfmidi/shuxinyuan-express/internal/config"
	"github.com/jyfmidi/shuxinyuan-express/internal/logger"
	"github.com/jyfmidi/shuxinyuan-express/internal/redis"
)

type Infra struct {
	// Redis is nil when no REDIS_ADDR is configured; sessions then
	// live in process memory.
	Redis *redis.Client
}

func setupInfra(_ context.Context, cfg config.Config) (*Infra, error) {
	if cfg.RedisAddr == "" {
		logger.Info("no redis configured, using in-memory sessions", nil)
		return &Infra{}, nil
	}

	redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}

	logger.Info("redis ready", nil)

	return &Infra{Redis: redisClient}, nil
}

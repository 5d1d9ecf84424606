package cache

import (
	"context"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/clinicbill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient connects to REDIS_ADDR. It returns a nil client when redis is
// not configured; consumers fall back to in-process behaviour.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*redis.Client, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Info("redis disabled; using in-process cache")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err != nil {
				return err
			}
			log.Info("redis connected", zap.String("addr", addr), zap.Int("db", cfg.RedisDB))
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

package redis

import (
	"context"
	"fmt"

	"cutcoin-wallet/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewClient builds the shared quote/rate-limit client and verifies
// connectivity. One endpoint gives a plain client, several a cluster client,
// and MasterName a sentinel failover client.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (goredis.UniversalClient, error) {
	client := goredis.NewUniversalClient(universalOptions(cfg))

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().
		Strs("addrs", cfg.Endpoints()).
		Str("master", cfg.MasterName).
		Int("db", cfg.DB).
		Int("pool_size", cfg.PoolSize).
		Msg("redis connection established")

	return client, nil
}

func universalOptions(cfg config.RedisConfig) *goredis.UniversalOptions {
	return &goredis.UniversalOptions{
		Addrs:        cfg.Endpoints(),
		MasterName:   cfg.MasterName,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

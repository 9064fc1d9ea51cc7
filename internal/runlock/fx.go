package runlock

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/relayplan/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("runlock",
	fx.Provide(NewGuard),
)

type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Config config.Config
	Log    *zap.Logger
}

// NewGuard returns a Redis backed guard when REDIS_ADDR is set and a no-op
// guard otherwise.
func NewGuard(p Params) Guard {
	log := p.Log.Named("runlock")
	redisCfg := p.Config.Redis
	if redisCfg.Addr == "" {
		log.Warn("REDIS_ADDR not set, concurrent rebuild runs are not prevented")
		return NoopGuard{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis %s: %w", redisCfg.Addr, err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	log.Info("run lock enabled",
		zap.String("key", RebuildLockKey),
		zap.Duration("ttl", p.Config.Rebuild.LockTTL),
	)
	return NewRedisGuard(client, RebuildLockKey, p.Config.Rebuild.LockTTL)
}

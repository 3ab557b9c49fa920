package prefs

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/xkdemo/moments/pkg/config"
	"github.com/xkdemo/moments/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	LC     fx.Lifecycle
	Logger logger.Logger
	Config *config.Config
}

// New picks Redis when an address is configured and memory otherwise.
func New(opts Opts) Store {
	if opts.Config.Redis.Addr == "" {
		opts.Logger.Info("No Redis address configured, keeping prefs in memory")
		return NewMemory()
	}

	client := redis.NewClient(&redis.Options{
		Addr: opts.Config.Redis.Addr,
		DB:   opts.Config.Redis.DB,
	})

	opts.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				// Prefs only pre-populate the UI; the session check still works without them.
				opts.Logger.Warn("Redis unreachable, prefs will not persist", "addr", opts.Config.Redis.Addr, "error", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return NewRedis(client, opts.Config.Redis.Key, opts.Logger)
}

var Module = fx.Module("prefs", fx.Provide(New))

package pgx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xkdemo/moments/pkg/config"
	"github.com/xkdemo/moments/pkg/logger"
	"github.com/xkdemo/moments/pkg/retry"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In
	LC     fx.Lifecycle
	Logger logger.Logger
	Config *config.Config
}

// New builds the pool backing the tables and auth gateways. The pool connects lazily;
// the start hook waits until postgres answers.
func New(opts Opts) (*pgxpool.Pool, error) {
	log := opts.Logger.WithComponent("Postgres")

	poolCfg, err := pgxpool.ParseConfig(opts.Config.GetURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres url: %w", err)
	}
	if opts.Config.Postgres.MaxConns > 0 {
		poolCfg.MaxConns = opts.Config.Postgres.MaxConns
	}
	if opts.Config.Postgres.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = opts.Config.Postgres.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	opts.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := retry.Do(ctx, log, "postgres ping", func() error {
				return pool.Ping(ctx)
			}, retry.DefaultConfig()); err != nil {
				return fmt.Errorf("failed to ping postgres: %w", err)
			}
			log.Info("Connected", "host", poolCfg.ConnConfig.Host, "database", poolCfg.ConnConfig.Database, "max_conns", poolCfg.MaxConns)
			return nil
		},
		OnStop: func(context.Context) error {
			pool.Close()
			log.Info("Pool closed")
			return nil
		},
	})

	return pool, nil
}

package app

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/xkdemo/moments/internal/api"
	"github.com/xkdemo/moments/internal/compose"
	"github.com/xkdemo/moments/internal/db"
	"github.com/xkdemo/moments/internal/feed"
	"github.com/xkdemo/moments/internal/gateway/minioimpl"
	"github.com/xkdemo/moments/internal/gateway/pgximpl"
	"github.com/xkdemo/moments/internal/media"
	"github.com/xkdemo/moments/internal/prefs"
	"github.com/xkdemo/moments/internal/profile"
	"github.com/xkdemo/moments/internal/ratelimit"
	"github.com/xkdemo/moments/internal/session"
	"github.com/xkdemo/moments/pkg/config"
	"github.com/xkdemo/moments/pkg/logger"
	"github.com/xkdemo/moments/pkg/pgx"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		pgx.New,
		clockwork.NewRealClock,
		media.NewPolicy,
		ratelimit.NewFromConfig,
	),
	pgximpl.Module,
	minioimpl.Module,
	profile.Module,
	prefs.Module,
	fx.Provide(
		feed.New,
		compose.New,
		newScheduler,
	),
	session.Module,
	fx.Invoke(migrate),
	fx.Invoke(runScheduler),
	api.Module,
)

func migrate(cfg *config.Config, log logger.Logger) error {
	return db.Migrate(context.Background(), cfg, log)
}

func newScheduler(c *feed.Coordinator, log logger.Logger, cfg *config.Config) *feed.Scheduler {
	return feed.NewScheduler(c, log, cfg.Feed.RefreshInterval)
}

func runScheduler(lc fx.Lifecycle, s *feed.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			// The job outlives the start context, so it gets its own.
			return s.Start(context.Background())
		},
		OnStop: func(context.Context) error {
			return s.Stop()
		},
	})
}

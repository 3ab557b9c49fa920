package minioimpl

import (
	"context"

	"github.com/xkdemo/moments/internal/gateway"
	"github.com/xkdemo/moments/pkg/config"
	"github.com/xkdemo/moments/pkg/logger"
	"go.uber.org/fx"
)

var Module = fx.Module("minio_gateway",
	fx.Provide(
		New,
		fx.Annotate(
			func(o *Objects) gateway.ObjectStore {
				return o
			},
			fx.As(new(gateway.ObjectStore)),
		),
	),
	fx.Invoke(func(lc fx.Lifecycle, o *Objects, cfg *config.Config, log logger.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := o.EnsureBucket(ctx, cfg.Storage.Bucket); err != nil {
					// Uploads will fail with UploadFailed until storage is reachable.
					log.Warn("Storage bucket unavailable", "bucket", cfg.Storage.Bucket, "error", err)
				}
				return nil
			},
		})
	}),
)

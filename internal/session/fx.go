package session

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("session",
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, m *Manager) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				// A failed check leaves the user signed out; it must not stop the app.
				go func() { _ = m.Bootstrap(context.Background()) }()
				return nil
			},
		})
	}),
)

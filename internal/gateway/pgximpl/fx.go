package pgximpl

import (
	"github.com/xkdemo/moments/internal/gateway"
	"go.uber.org/fx"
)

var Module = fx.Module("pgx_gateway",
	fx.Provide(
		NewTables,
		fx.Annotate(
			func(t *Tables) gateway.TableStore {
				return t
			},
			fx.As(new(gateway.TableStore)),
		),
		NewAuth,
		fx.Annotate(
			func(a *Auth) gateway.Auth {
				return a
			},
			fx.As(new(gateway.Auth)),
		),
	),
)

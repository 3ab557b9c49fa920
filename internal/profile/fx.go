package profile

import "go.uber.org/fx"

var Module = fx.Module("profile",
	fx.Provide(
		NewGateway,
		fx.Annotate(
			func(g *Gateway) Service {
				return g
			},
			fx.As(new(Service)),
		),
	),
)

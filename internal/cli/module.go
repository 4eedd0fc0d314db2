package cli

import (
	"shoe_pos/internal/backend"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"cli",
		fx.Provide(
			func(c *backend.Client) API { return c },
			NewRunner,
		),
	)
}

package pos

import (
	"shoe_pos/internal/backend"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"pos",
		fx.Provide(
			func(c *backend.Client) Backend { return c },
			NewTerminal,
		),
	)
}

package product

import (
	"shoe_pos/internal/backend"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"product",
		fx.Provide(
			NewDraftStore,
			func(c *backend.Client) Backend { return c },
			NewService,
		),
	)
}

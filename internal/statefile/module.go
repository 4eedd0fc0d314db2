package statefile

import (
	"shoe_pos/internal/config"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"statefile",
		fx.Provide(func(cfg config.Config) *Store {
			return New(cfg.StateFile)
		}),
	)
}

package receipt

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module(
		"receipt",
		fx.Provide(NewPrinter, ShopFromConfig),
	)
}

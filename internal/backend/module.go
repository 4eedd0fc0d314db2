package backend

import (
	"shoe_pos/internal/session"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"backend",
		fx.Provide(
			func(store *session.Store) Session { return store },
			NewClient,
		),
	)
}

package logging

import (
	"context"
	"os"

	"shoe_pos/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module tees the application logger into the log file. The decoration
// applies app-wide, so this stays plain fx.Options.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(func(cfg config.Config) (*os.File, error) {
			return OpenFile(cfg.LogFile)
		}),
		fx.Decorate(func(base *zap.Logger, cfg config.Config, file *os.File) *zap.Logger {
			return Tee(base, file, Level(cfg.Debug))
		}),
		fx.Invoke(func(lc fx.Lifecycle, logger *zap.Logger, file *os.File) {
			if file == nil {
				return
			}
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					_ = logger.Sync()
					return file.Close()
				},
			})
		}),
	)
}

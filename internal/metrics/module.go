package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"shoe_pos/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"metrics",
		fx.Provide(New),
		fx.Invoke(serve),
	)
}

// serve exposes /metrics when metrics_addr is configured.
func serve(lc fx.Lifecycle, cfg config.Config, m *Metrics, logger *zap.Logger) {
	if cfg.MetricsAddr == "" {
		return
	}
	logger = logger.Named("metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			ln, err := net.Listen("tcp", cfg.MetricsAddr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server stopped", zap.Error(err))
				}
			}()
			logger.Info("metrics exporter listening", zap.String("addr", cfg.MetricsAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

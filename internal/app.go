package internal

import (
	"context"
	"errors"
	"flag"
	"os"

	"shoe_pos/internal/backend"
	"shoe_pos/internal/cli"
	"shoe_pos/internal/config"
	"shoe_pos/internal/llm"
	"shoe_pos/internal/logging"
	"shoe_pos/internal/metrics"
	"shoe_pos/internal/pos"
	"shoe_pos/internal/product"
	"shoe_pos/internal/receipt"
	"shoe_pos/internal/session"
	"shoe_pos/internal/statefile"

	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Run(args []string) error {
	globals, err := cli.ParseGlobals(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	var runner *cli.Runner

	app := fx.New(
		logger.Module(),
		logger.WithFxDefaultLogger(),
		config.Module(),
		fx.Supply(globals),
		fx.Decorate(globals.Apply),
		logging.Module(),
		metrics.Module(),
		statefile.Module(),
		session.Module(),
		backend.Module(),
		pos.Module(),
		receipt.Module(),
		product.Module(),
		llm.Module(),
		cli.Module(),
		fx.Populate(&runner),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(ctx)
	}()

	return runner.Execute()
}

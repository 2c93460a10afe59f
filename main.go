package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Farcas-Consult/rams-sub000/config"
	"github.com/Farcas-Consult/rams-sub000/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:          "rams",
		Short:        "RFID asset management service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file read before the environment")

	load := func() (*config.Config, ectologger.Logger, *zap.Logger, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, nil, nil, err
		}
		logger, zapLogger, err := logging.New(cfg.LogLevel, cfg.PrettyLogs)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
		}
		return cfg, logger, zapLogger, nil
	}

	root.AddCommand(
		newServeCommand(load),
		newWatchCommand(load),
		newImportCommand(load),
	)
	return root
}

type loader func() (*config.Config, ectologger.Logger, *zap.Logger, error)

package main

import (
	"github.com/spf13/cobra"

	"github.com/Farcas-Consult/rams-sub000/internal/server"
)

func newServeCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion, tag binding, live view and lifecycle API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, zapLogger, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = zapLogger.Sync() }()

			logger.WithFields(map[string]any{
				"app":     cfg.AppName,
				"version": cfg.Version,
			}).Info("Starting server")

			return server.New(cfg, logger).Run(cmd.Context())
		},
	}
}

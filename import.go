package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Farcas-Consult/rams-sub000/internal/server"
	"github.com/Farcas-Consult/rams-sub000/pkg/redis"
)

func newImportCommand(load loader) *cobra.Command {
	var (
		file    string
		mapping string
		source  string
	)

	cmd := &cobra.Command{
		Use:   "import-undiscovered",
		Short: "Load an .xlsx reconciliation feed into the undiscovered-asset store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, zapLogger, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = zapLogger.Sync() }()

			ctx := cmd.Context()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open workbook: %w", err)
			}
			defer f.Close()

			conn, err := server.Connect(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			var client *redis.Client
			if cfg.RedisEnabled {
				client, err = server.ConnectRedis(ctx, cfg, logger)
				if err != nil {
					return err
				}
				defer client.Close()
			}

			if source == "" {
				source = filepath.Base(file)
			}

			records, err := server.NewUndiscoveredService(cfg, conn, client, logger).Import(ctx, mapping, f, &source)
			if err != nil {
				return err
			}

			logger.WithFields(map[string]any{
				"file":     file,
				"mapping":  mapping,
				"imported": len(records),
			}).Info("Imported undiscovered assets")
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d undiscovered assets from %s\n", len(records), file)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path of the .xlsx workbook")
	cmd.Flags().StringVar(&mapping, "mapping", "", "column mapping name, defaults to UNDISCOVERED_MAPPING")
	cmd.Flags().StringVar(&source, "source", "", "source label stored on each record, defaults to the file name")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/authgate/internal/http/server"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones de postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.Storage.Driver != "postgres" {
				return errors.New("migrate requires storage.driver=postgres")
			}
			dir, err := server.OpenDirectory(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			return dir.Close()
		},
	}
}

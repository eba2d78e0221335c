package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/assetlife/server/internal/config"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.DBDriver == config.DriverMemory {
				return fmt.Errorf("migrate needs a sqlite or postgres driver")
			}
			// Open applies migrations before returning.
			h, err := openDB(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer h.Close()

			a.log.Info().Str("driver", string(h.Dialect)).Msg("migrations applied")
			return nil
		},
	}
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"prompthive/internal/config"
	"prompthive/internal/database"
)

var migrateSeed bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply every pending goose migration embedded in the binary and print
the resulting schema version.

Examples:
  prompthive migrate           # migrate only
  prompthive migrate --seed    # migrate and create the demo account`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			return err
		}
		if migrateSeed {
			if err := database.Seed(db); err != nil {
				return err
			}
		}

		v, err := database.Version(db)
		if err != nil {
			return err
		}
		slog.Info("schema up to date", "version", v)
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSeed, "seed", false, "create the demo account and prompts if no users exist")
}

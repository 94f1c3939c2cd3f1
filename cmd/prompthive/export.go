package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"prompthive/internal/config"
	"prompthive/internal/database"
	"prompthive/internal/export"
	"prompthive/internal/models"
	"prompthive/internal/store"
)

var (
	exportEmail  string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's prompts as CSV or JSON",
	Long: `Write every current prompt of an account to a file or stdout.

Examples:
  prompthive export --email demo@prompthive.local
  prompthive export --email demo@prompthive.local --format json -o prompts.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		if exportEmail == "" {
			return errors.New("--email is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		ctx := cmd.Context()
		user, err := store.NewUserStore(db).FindByEmail(ctx, exportEmail)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("no account for %s", exportEmail)
		}

		list, err := store.NewPromptStore(db).ListCurrent(ctx, user.ID, models.Filter{})
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		if err := export.Write(w, format, list); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		if exportOut != "" && exportOut != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d prompts to %s\n", len(list), exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportEmail, "email", "", "account email")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "export format: csv or json")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default stdout)")
}

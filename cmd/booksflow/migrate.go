package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/booksflow/booksflow/internal/cli"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// openStorage migrates on open; this command exists so new
			// deployments can prepare the database explicitly.
			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					slog.Warn("Failed to close storage", "error", err)
				}
			}()

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Database is up to date."))
			return nil
		},
	}
}

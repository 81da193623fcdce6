package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/booksflow/booksflow/internal/cli"
	"github.com/booksflow/booksflow/internal/ofx"
)

func importOFXCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-ofx <file>...",
		Short: "Import ledger entries from OFX/QFX bank exports",
		Long: `Import-ofx parses downloaded OFX or QFX statement files and stores
their transactions as ledger entries for matching.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	paths, err := expandGlobs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files matched")
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close storage", "error", err)
		}
	}()

	parser := ofx.NewParser(slog.Default())

	total := 0
	for _, path := range paths {
		file, err := os.Open(path) //nolint:gosec // user-supplied statement path
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}

		entries, err := parser.ParseFile(ctx, file)
		closeErr := file.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if closeErr != nil {
			slog.Warn("Failed to close statement file", "path", path, "error", closeErr)
		}

		if err := store.SaveLedgerEntries(ctx, entries); err != nil {
			return fmt.Errorf("failed to save entries from %s: %w", path, err)
		}

		total += len(entries)
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("%s: %d transactions", path, len(entries))))
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Imported %d ledger entries from %d file(s).", total, len(paths))))
	return nil
}

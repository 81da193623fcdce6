package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/booksflow/booksflow/internal/cli"
	"github.com/booksflow/booksflow/internal/model"
	"github.com/booksflow/booksflow/internal/service"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Suggest categories for ledger entries",
		Long: `Categorize asks the configured language model for a category suggestion
for each ledger entry in the given account and date range. Entries are
processed in small concurrent batches.`,
		RunE: runCategorize,
	}
	cmd.Flags().String("account", "", "ledger account to categorize (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().String("start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().Int("days", 30, "days back from today when no explicit range is given")
	return cmd
}

func runCategorize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	account, _ := cmd.Flags().GetString("account")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	days, _ := cmd.Flags().GetInt("days")

	var window service.DateWindow
	if startStr != "" || endStr != "" {
		var err error
		window, err = parseWindow(startStr, endStr, time.Time{}, 0)
		if err != nil {
			return err
		}
	} else {
		now := time.Now().UTC()
		window = service.DateWindow{Start: now.AddDate(0, 0, -days), End: now}
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

	entries, err := store.GetCandidateEntries(ctx, account, window)
	if err != nil {
		return fmt.Errorf("failed to load ledger entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No ledger entries in range."))
		return nil
	}

	eng, err := newEngine(store, false, true)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Categorizing %d entries...", len(entries))))

	results, summary, err := eng.CategorizeBatch(ctx, entries)
	if err != nil {
		return err
	}

	byID := make(map[string]model.LedgerEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	for _, res := range results {
		entry := byID[res.EntryID]
		if res.Err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("%s: %v", entry.Description, res.Err)))
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuggestion(entry.Description, res.Suggestion))
	}

	fmt.Fprintln(cmd.OutOrStdout(), formatSummary(summary))
	return nil
}

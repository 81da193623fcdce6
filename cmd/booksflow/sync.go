package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/booksflow/booksflow/internal/cli"
	"github.com/booksflow/booksflow/internal/model"
	"github.com/booksflow/booksflow/internal/resilience"
	"github.com/booksflow/booksflow/internal/service"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull ledger entries from the accounting platform or bank feed",
		Long: `Sync fetches ledger entries for an account and date range from the
configured source and stores them locally as matching candidates.
Sources: books (accounting platform, default), plaid (bank feed).`,
		RunE: runSync,
	}
	cmd.Flags().String("source", "books", "entry source (books, plaid)")
	cmd.Flags().String("account", "", "account to sync (required)")
	cmd.Flags().String("start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().Int("days", 30, "days back from today when no explicit range is given")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	source, _ := cmd.Flags().GetString("source")
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

	var ledger service.LedgerSource
	switch source {
	case "books":
		client, err := newBooksClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to create books client: %w", err)
		}
		ledger = client
	case "plaid":
		client, err := newPlaidClient()
		if err != nil {
			return fmt.Errorf("failed to create plaid client: %w", err)
		}
		ledger = client
	default:
		return fmt.Errorf("unknown source %q (want books or plaid)", source)
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

	invoker := newInvoker()
	retry := engineOptions().Retry

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(
		fmt.Sprintf("Syncing %s entries for %s (%s to %s)...",
			source, account, window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))))

	entries, err := resilience.Call(ctx, invoker, resilience.DependencyBooksSync,
		func(ctx context.Context) ([]model.LedgerEntry, error) {
			return ledger.FetchEntries(ctx, account, window)
		}, retry)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if err := store.SaveLedgerEntries(ctx, entries); err != nil {
		return fmt.Errorf("failed to save entries: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Synced %d ledger entries.", len(entries))))
	return nil
}

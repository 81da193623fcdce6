package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/booksflow/booksflow/internal/cli"
	"github.com/booksflow/booksflow/internal/engine"
	"github.com/booksflow/booksflow/internal/model"
	"github.com/booksflow/booksflow/internal/storage"
	"github.com/booksflow/booksflow/internal/tui"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match [receipt-id]",
		Short: "Rank ledger entries against extracted receipts",
		Long: `Match scores candidate ledger entries against a receipt's extracted
fields and ranks the top candidates. With --review, every unlinked
receipt is matched and presented for interactive review; accepted
matches are linked immediately.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runMatch,
	}
	cmd.Flags().String("account", "", "ledger account to search for candidates (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().String("start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().Int("days", 14, "days either side of the receipt date")
	cmd.Flags().Bool("review", false, "interactively review and link all unlinked receipts")
	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	review, _ := cmd.Flags().GetBool("review")
	if !review && len(args) == 0 {
		return fmt.Errorf("a receipt ID is required unless --review is set")
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

	eng, err := newEngine(store, false, false)
	if err != nil {
		return err
	}

	if review {
		return runReview(cmd, store, eng)
	}

	receiptID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid receipt ID %q: %w", args[0], err)
	}

	receipt, err := store.GetReceipt(ctx, receiptID)
	if err != nil {
		return err
	}

	matches, err := matchReceipt(cmd, eng, receipt)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatReceipt(receipt))
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatMatches(matches))
	return nil
}

func matchReceipt(cmd *cobra.Command, eng *engine.Engine, receipt *model.Receipt) (*model.RankedMatches, error) {
	account, _ := cmd.Flags().GetString("account")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	days, _ := cmd.Flags().GetInt("days")

	center := time.Now().UTC()
	if receipt.Extracted != nil && receipt.Extracted.Date != nil {
		center = *receipt.Extracted.Date
	}
	window, err := parseWindow(startStr, endStr, center, days)
	if err != nil {
		return nil, err
	}

	matches, err := eng.Match(cmd.Context(), receipt.ID, account, window)
	if err != nil {
		return nil, err
	}
	return &matches, nil
}

func runReview(cmd *cobra.Command, store *storage.SQLiteStorage, eng *engine.Engine) error {
	ctx := cmd.Context()

	receipts, err := store.ListUnlinkedReceipts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unlinked receipts: %w", err)
	}

	var items []tui.Item
	for i := range receipts {
		receipt := &receipts[i]
		if receipt.Extracted == nil {
			slog.Debug("Skipping receipt without extraction", "receipt_id", receipt.ID)
			continue
		}
		matches, err := matchReceipt(cmd, eng, receipt)
		if err != nil {
			slog.Warn("Matching failed", "receipt_id", receipt.ID, "error", err)
			continue
		}
		if len(matches.Candidates) == 0 {
			continue
		}
		items = append(items, tui.Item{Receipt: receipt, Matches: matches})
	}

	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing to review."))
		return nil
	}

	decisions, err := tui.Run(items)
	if err != nil {
		return err
	}

	linked := 0
	for _, d := range decisions {
		if d.Skipped || d.EntryID == "" {
			continue
		}
		result, err := eng.Link(ctx, d.ReceiptID, d.EntryID)
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatError(fmt.Sprintf("link %s: %v", d.ReceiptID, err)))
			continue
		}
		linked++
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Linked receipt %s to entry %s", result.ReceiptID, result.EntryID)))
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Reviewed %d receipt(s), linked %d.", len(decisions), linked)))
	return nil
}

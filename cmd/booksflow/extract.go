package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/booksflow/booksflow/internal/cli"
	"github.com/booksflow/booksflow/internal/engine"
	"github.com/booksflow/booksflow/internal/model"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file or glob>...",
		Short: "Extract vendor, amount and date from receipt files",
		Long: `Extract runs optical extraction over receipt images and PDFs, storing
the structured fields alongside each receipt. Files are processed in
small concurrent batches with a pause between batches.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExtract,
	}
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
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

	eng, err := newEngine(store, true, false)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetWriter(cmd.OutOrStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Reading receipts...[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.OutOrStdout())
		}),
	)

	receipts := make(map[uuid.UUID]*model.Receipt, len(paths))
	items := make([]engine.ExtractItem, 0, len(paths))
	for _, path := range paths {
		payload, err := os.ReadFile(path) //nolint:gosec // user-supplied receipt path
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		receipt := &model.Receipt{
			ID:          uuid.New(),
			FileName:    filepath.Base(path),
			ContentType: contentTypeFor(path),
			UploadedAt:  time.Now().UTC(),
		}
		if err := store.SaveReceipt(ctx, receipt); err != nil {
			return fmt.Errorf("failed to save receipt for %s: %w", path, err)
		}

		receipts[receipt.ID] = receipt
		items = append(items, engine.ExtractItem{
			ReceiptID:   receipt.ID,
			ContentType: receipt.ContentType,
			Payload:     payload,
		})
		_ = bar.Add(1)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Extracting %d receipt(s)...", len(items))))

	results, summary := eng.ExtractBatch(ctx, items)

	for _, res := range results {
		receipt := receipts[res.ReceiptID]
		if res.Err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatError(fmt.Sprintf("%s: %v", receipt.FileName, res.Err)))
			continue
		}
		receipt.Extracted = res.Document
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatReceipt(receipt))
	}

	fmt.Fprintln(cmd.OutOrStdout(), formatSummary(summary))
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d receipts failed extraction", summary.Failed, summary.Total)
	}
	return nil
}

func expandGlobs(patterns []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if matches == nil {
			// Not a glob; treat as a literal path so missing files error
			// clearly at read time.
			matches = []string{pattern}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	return paths, nil
}

func formatSummary(s engine.BatchSummary) string {
	msg := fmt.Sprintf("%d succeeded, %d failed (%d total in %s)",
		s.Succeeded, s.Failed, s.Total, s.Duration.Round(time.Millisecond))
	if s.Failed > 0 {
		return cli.FormatWarning(msg)
	}
	return cli.FormatSuccess(msg)
}

package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/booksflow/booksflow/internal/cli"
	"github.com/booksflow/booksflow/internal/common"
)

func linkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <receipt-id> <entry-id>",
		Short: "Link a receipt to a ledger entry",
		Args:  cobra.ExactArgs(2),
		RunE:  runLink,
	}
}

func unlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <receipt-id>",
		Short: "Remove a receipt's ledger entry link",
		Args:  cobra.ExactArgs(1),
		RunE:  runUnlink,
	}
}

func runLink(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	receiptID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid receipt ID %q: %w", args[0], err)
	}
	entryID := args[1]

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

	result, err := eng.Link(ctx, receiptID, entryID)
	if err != nil {
		var conflict *common.ConflictError
		if errors.As(err, &conflict) {
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(
				fmt.Sprintf("Entry %s is already linked to receipt %s. Unlink it first.", entryID, conflict.ConflictingReceipt)))
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
		fmt.Sprintf("Linked receipt %s to entry %s", result.ReceiptID, result.EntryID)))
	return nil
}

func runUnlink(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	receiptID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid receipt ID %q: %w", args[0], err)
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

	if err := eng.Unlink(ctx, receiptID); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Unlinked receipt %s", receiptID)))
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/booksflow/booksflow/internal/common"
)

// GetLinkedReceipt returns the receipt currently linked to a ledger entry,
// or ErrNotFound when the entry is unlinked.
func (s *SQLiteStorage) GetLinkedReceipt(ctx context.Context, entryID string) (uuid.UUID, error) {
	if err := validateContext(ctx); err != nil {
		return uuid.Nil, err
	}
	if err := validateString(entryID, "entryID"); err != nil {
		return uuid.Nil, err
	}

	var receiptID string
	err := s.db.QueryRowContext(ctx,
		`SELECT receipt_id FROM receipt_links WHERE entry_id = ?`, entryID).Scan(&receiptID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("link for entry %s: %w", entryID, common.ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get link: %w", err)
	}
	return uuid.Parse(receiptID)
}

// LinkReceipt links a receipt to a ledger entry. The conflict check and the
// write happen in one transaction so two concurrent matches cannot silently
// overwrite each other: if the entry is already linked to a different
// receipt, a ConflictError naming that receipt is returned and the existing
// link is left untouched. Re-linking the same pair is a no-op.
func (s *SQLiteStorage) LinkReceipt(ctx context.Context, receiptID uuid.UUID, entryID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if receiptID == uuid.Nil {
		return common.NewValidationError("receiptID", "missing id")
	}
	if err := validateString(entryID, "entryID"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT receipt_id FROM receipt_links WHERE entry_id = ?`, entryID).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Entry is free.
	case err != nil:
		return fmt.Errorf("failed to check existing link: %w", err)
	case existing == receiptID.String():
		return nil
	default:
		conflicting, parseErr := uuid.Parse(existing)
		if parseErr != nil {
			return fmt.Errorf("corrupt link for entry %s: %w", entryID, parseErr)
		}
		return &common.ConflictError{EntryID: entryID, ConflictingReceipt: conflicting}
	}

	// A receipt links to at most one entry; replace any previous link it held.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM receipt_links WHERE receipt_id = ?`, receiptID.String()); err != nil {
		return fmt.Errorf("failed to clear previous link: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO receipt_links (receipt_id, entry_id) VALUES (?, ?)`,
		receiptID.String(), entryID); err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}

	return tx.Commit()
}

// UnlinkReceipt removes a receipt's ledger link. Unlinking is always
// permitted; removing a nonexistent link is a no-op.
func (s *SQLiteStorage) UnlinkReceipt(ctx context.Context, receiptID uuid.UUID) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if receiptID == uuid.Nil {
		return common.NewValidationError("receiptID", "missing id")
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM receipt_links WHERE receipt_id = ?`, receiptID.String()); err != nil {
		return fmt.Errorf("failed to unlink receipt: %w", err)
	}
	return nil
}

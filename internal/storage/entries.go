package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/model"
	"github.com/booksflow/booksflow/internal/service"
)

// SaveLedgerEntries inserts entries, skipping duplicates by hash. Entries
// arrive from the books sync and the import paths.
func (s *SQLiteStorage) SaveLedgerEntries(ctx context.Context, entries []model.LedgerEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(entries) == 0 {
		return common.NewValidationError("entries", "cannot be empty")
	}
	for i := range entries {
		if err := validateLedgerEntry(&entries[i]); err != nil {
			return fmt.Errorf("entry at index %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO ledger_entries (id, hash, date, description, vendor, account, source, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range entries {
		entry := &entries[i]
		if _, err := stmt.ExecContext(ctx, entry.ID, entry.Hash(), entry.Date,
			entry.Description, entry.Vendor, entry.Account, entry.Source, entry.Amount); err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", entry.ID, err)
		}
	}

	return tx.Commit()
}

// GetLedgerEntry fetches one entry by id.
func (s *SQLiteStorage) GetLedgerEntry(ctx context.Context, id string) (*model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var entry model.LedgerEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT id, date, description, vendor, account, source, amount
		FROM ledger_entries WHERE id = ?
	`, id).Scan(&entry.ID, &entry.Date, &entry.Description, &entry.Vendor,
		&entry.Account, &entry.Source, &entry.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger entry %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return &entry, nil
}

// GetCandidateEntries returns unlinked entries for the account inside the
// window, newest first, capped at service.CandidateLimit rows.
func (s *SQLiteStorage) GetCandidateEntries(ctx context.Context, account string, window service.DateWindow) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(account, "account"); err != nil {
		return nil, err
	}
	if window.End.Before(window.Start) {
		return nil, common.NewValidationError("window", "end must not precede start")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.date, e.description, e.vendor, e.account, e.source, e.amount
		FROM ledger_entries e
		WHERE e.account = ?
		  AND e.date >= ? AND e.date <= ?
		  AND NOT EXISTS (SELECT 1 FROM receipt_links l WHERE l.entry_id = e.id)
		ORDER BY e.date DESC
		LIMIT ?
	`, account, window.Start, window.End, service.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.LedgerEntry
	for rows.Next() {
		var entry model.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.Date, &entry.Description, &entry.Vendor,
			&entry.Account, &entry.Source, &entry.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

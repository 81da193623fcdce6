package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is one schema change, applied in order exactly once.
type migration struct {
	apply   func(ctx context.Context, tx *sql.Tx) error
	name    string
	version int
}

var migrations = []migration{
	{
		version: 1,
		name:    "create receipts and extractions",
		apply: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS receipts (
					id TEXT PRIMARY KEY,
					file_name TEXT NOT NULL,
					content_type TEXT NOT NULL DEFAULT '',
					uploaded_at TIMESTAMP NOT NULL
				);
				CREATE TABLE IF NOT EXISTS extractions (
					receipt_id TEXT PRIMARY KEY REFERENCES receipts(id) ON DELETE CASCADE,
					vendor TEXT NOT NULL DEFAULT '',
					amount REAL,
					date TIMESTAMP,
					currency TEXT NOT NULL DEFAULT '',
					category_hint TEXT NOT NULL DEFAULT '',
					confidence REAL NOT NULL DEFAULT 0,
					vendor_confidence REAL NOT NULL DEFAULT 0,
					amount_confidence REAL NOT NULL DEFAULT 0,
					raw_payload BLOB,
					processing_ms INTEGER NOT NULL DEFAULT 0,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
			`)
			return err
		},
	},
	{
		version: 2,
		name:    "create ledger entries",
		apply: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS ledger_entries (
					id TEXT PRIMARY KEY,
					hash TEXT NOT NULL UNIQUE,
					date TIMESTAMP NOT NULL,
					description TEXT NOT NULL,
					vendor TEXT NOT NULL DEFAULT '',
					account TEXT NOT NULL,
					source TEXT NOT NULL DEFAULT '',
					amount REAL NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_ledger_entries_account_date
					ON ledger_entries(account, date);
			`)
			return err
		},
	},
	{
		version: 3,
		name:    "create receipt links",
		apply: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS receipt_links (
					receipt_id TEXT PRIMARY KEY REFERENCES receipts(id),
					entry_id TEXT NOT NULL UNIQUE REFERENCES ledger_entries(id),
					linked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
			`)
			return err
		},
	},
	{
		version: 4,
		name:    "create categories",
		apply: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					description TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
			`)
			return err
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}

		if err := m.apply(ctx, tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}

		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to bump schema version to %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}

		slog.Debug("applied migration", "version", m.version, "name", m.name)
	}

	return nil
}

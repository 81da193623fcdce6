package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/model"
)

// SaveReceipt inserts or updates a receipt record.
func (s *SQLiteStorage) SaveReceipt(ctx context.Context, receipt *model.Receipt) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReceipt(receipt); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts (id, file_name, content_type, uploaded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_name = excluded.file_name,
			content_type = excluded.content_type
	`, receipt.ID.String(), receipt.FileName, receipt.ContentType, receipt.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}

	if receipt.Extracted != nil {
		return s.SaveExtraction(ctx, receipt.ID, receipt.Extracted)
	}
	return nil
}

// SaveExtraction stores the extracted document for a receipt. Extractions are
// written once; a second write for the same receipt replaces the first only
// if re-extraction was requested upstream.
func (s *SQLiteStorage) SaveExtraction(ctx context.Context, receiptID uuid.UUID, doc *model.ExtractedDocument) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExtraction(doc); err != nil {
		return err
	}

	var amount any
	if doc.Amount != nil {
		amount = *doc.Amount
	}
	var date any
	if doc.Date != nil {
		date = *doc.Date
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO extractions (
			receipt_id, vendor, amount, date, currency, category_hint,
			confidence, vendor_confidence, amount_confidence, raw_payload, processing_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, receiptID.String(), doc.Vendor, amount, date, doc.Currency, doc.CategoryHint,
		doc.Confidence, doc.VendorConfidence, doc.AmountConfidence,
		[]byte(doc.RawPayload), doc.ProcessingTime.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to save extraction: %w", err)
	}
	return nil
}

// GetReceipt fetches one receipt with its extraction and link, if any.
func (s *SQLiteStorage) GetReceipt(ctx context.Context, id uuid.UUID) (*model.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.file_name, r.content_type, r.uploaded_at, COALESCE(l.entry_id, '')
		FROM receipts r
		LEFT JOIN receipt_links l ON l.receipt_id = r.id
		WHERE r.id = ?
	`, id.String())

	receipt, err := scanReceipt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("receipt %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	receipt.Extracted, err = s.getExtraction(ctx, id)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListUnlinkedReceipts returns receipts without a ledger link, oldest first.
func (s *SQLiteStorage) ListUnlinkedReceipts(ctx context.Context) ([]model.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.file_name, r.content_type, r.uploaded_at, ''
		FROM receipts r
		WHERE NOT EXISTS (SELECT 1 FROM receipt_links l WHERE l.receipt_id = r.id)
		ORDER BY r.uploaded_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlinked receipts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var receipts []model.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipt.Extracted, err = s.getExtraction(ctx, receipt.ID)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, *receipt)
	}
	return receipts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (*model.Receipt, error) {
	var receipt model.Receipt
	var id string
	if err := row.Scan(&id, &receipt.FileName, &receipt.ContentType, &receipt.UploadedAt, &receipt.LinkedEntryID); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid receipt id %q: %w", id, err)
	}
	receipt.ID = parsed
	return &receipt, nil
}

func (s *SQLiteStorage) getExtraction(ctx context.Context, receiptID uuid.UUID) (*model.ExtractedDocument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT vendor, amount, date, currency, category_hint,
		       confidence, vendor_confidence, amount_confidence, raw_payload, processing_ms
		FROM extractions WHERE receipt_id = ?
	`, receiptID.String())

	var doc model.ExtractedDocument
	var amount sql.NullFloat64
	var date sql.NullTime
	var payload []byte
	var processingMs int64
	err := row.Scan(&doc.Vendor, &amount, &date, &doc.Currency, &doc.CategoryHint,
		&doc.Confidence, &doc.VendorConfidence, &doc.AmountConfidence, &payload, &processingMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get extraction: %w", err)
	}

	if amount.Valid {
		doc.Amount = &amount.Float64
	}
	if date.Valid {
		d := date.Time
		doc.Date = &d
	}
	doc.RawPayload = payload
	doc.ProcessingTime = time.Duration(processingMs) * time.Millisecond
	return &doc, nil
}

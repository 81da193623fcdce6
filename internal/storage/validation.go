package storage

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return common.NewValidationError("ctx", "context cannot be nil")
	}
	return nil
}

func validateString(s, name string) error {
	if strings.TrimSpace(s) == "" {
		return common.NewValidationError(name, "cannot be empty")
	}
	return nil
}

func validateReceipt(receipt *model.Receipt) error {
	if receipt == nil {
		return common.NewValidationError("receipt", "cannot be nil")
	}
	if receipt.ID == uuid.Nil {
		return common.NewValidationError("receipt.id", "missing id")
	}
	if receipt.FileName == "" {
		return common.NewValidationError("receipt.file_name", "missing file name")
	}
	if receipt.UploadedAt.IsZero() {
		return common.NewValidationError("receipt.uploaded_at", "missing upload time")
	}
	return nil
}

func validateLedgerEntry(entry *model.LedgerEntry) error {
	if entry.ID == "" {
		return common.NewValidationError("entry.id", "missing id")
	}
	if entry.Date.IsZero() {
		return common.NewValidationError("entry.date", "missing date")
	}
	if entry.Description == "" {
		return common.NewValidationError("entry.description", "missing description")
	}
	if entry.Account == "" {
		return common.NewValidationError("entry.account", "missing account")
	}
	return nil
}

func validateExtraction(doc *model.ExtractedDocument) error {
	if doc == nil {
		return common.NewValidationError("extraction", "cannot be nil")
	}
	if doc.Confidence < 0 || doc.Confidence > 1 {
		return common.NewValidationError("extraction.confidence", "must be between 0 and 1")
	}
	return nil
}

// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/booksflow/booksflow/internal/model"
)

// CandidateLimit caps how many unlinked ledger entries a matching request may
// consider.
const CandidateLimit = 100

// DateWindow bounds a candidate query in time.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window (inclusive).
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Receipt operations
	SaveReceipt(ctx context.Context, receipt *model.Receipt) error
	GetReceipt(ctx context.Context, id uuid.UUID) (*model.Receipt, error)
	ListUnlinkedReceipts(ctx context.Context) ([]model.Receipt, error)
	SaveExtraction(ctx context.Context, receiptID uuid.UUID, doc *model.ExtractedDocument) error

	// Ledger entry operations
	SaveLedgerEntries(ctx context.Context, entries []model.LedgerEntry) error
	GetLedgerEntry(ctx context.Context, id string) (*model.LedgerEntry, error)
	// GetCandidateEntries returns unlinked entries for an account inside the
	// window, ordered by date descending, capped at CandidateLimit rows.
	GetCandidateEntries(ctx context.Context, account string, window DateWindow) ([]model.LedgerEntry, error)

	// Link operations
	GetLinkedReceipt(ctx context.Context, entryID string) (uuid.UUID, error)
	LinkReceipt(ctx context.Context, receiptID uuid.UUID, entryID string) error
	UnlinkReceipt(ctx context.Context, receiptID uuid.UUID) error

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// OCRClient extracts structured data from a receipt payload.
type OCRClient interface {
	Extract(ctx context.Context, payload []byte, contentType string) (*model.ExtractedDocument, error)
}

// Categorizer suggests a category for a ledger entry description. The
// returned suggestion's category is always a member of the supplied list, or
// the fallback category.
type Categorizer interface {
	Suggest(ctx context.Context, description string, categories []model.Category) (model.CategorySuggestion, error)
}

// LedgerSource fetches ledger entries from an external system.
type LedgerSource interface {
	FetchEntries(ctx context.Context, account string, window DateWindow) ([]model.LedgerEntry, error)
}

// RetryOptions configures retry behavior for remote operations.
type RetryOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	CallTimeout time.Duration
}

// Normalize fills in defaults for unset fields.
func (o RetryOptions) Normalize() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 30 * time.Second
	}
	return o
}

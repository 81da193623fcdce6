// Package engine orchestrates receipt extraction, categorization and
// receipt-to-ledger reconciliation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/match"
	"github.com/booksflow/booksflow/internal/model"
	"github.com/booksflow/booksflow/internal/resilience"
	"github.com/booksflow/booksflow/internal/service"
)

// Options configures engine behavior.
type Options struct {
	// BatchSize is the number of items processed concurrently per batch.
	BatchSize int
	// InterBatchDelay is a fixed pause between batches, respecting provider
	// rate limits.
	InterBatchDelay time.Duration
	// Retry applies to every remote call made by the engine.
	Retry service.RetryOptions
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		BatchSize:       4,
		InterBatchDelay: 1500 * time.Millisecond,
		Retry: service.RetryOptions{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
			CallTimeout: 30 * time.Second,
		},
	}
}

func (o Options) normalize() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 4
	}
	if o.InterBatchDelay < 0 {
		o.InterBatchDelay = 0
	}
	o.Retry = o.Retry.Normalize()
	return o
}

// Engine is the reconciliation engine. All remote provider calls pass
// through its invoker; all record access goes through its storage.
type Engine struct {
	storage     service.Storage
	ocr         service.OCRClient
	categorizer service.Categorizer
	invoker     *resilience.Invoker
	ranker      *match.Ranker
	logger      *slog.Logger
	opts        Options
}

// New creates a reconciliation engine.
func New(storage service.Storage, ocr service.OCRClient, categorizer service.Categorizer, invoker *resilience.Invoker, opts Options) *Engine {
	return &Engine{
		storage:     storage,
		ocr:         ocr,
		categorizer: categorizer,
		invoker:     invoker,
		ranker:      match.NewRanker(nil),
		logger:      slog.Default(),
		opts:        opts.normalize(),
	}
}

// ExtractReceipt runs optical extraction for one receipt and persists the
// result. The remote call goes through the resilience facade; an error here
// means retries were exhausted or the input was invalid.
func (e *Engine) ExtractReceipt(ctx context.Context, receiptID uuid.UUID, payload []byte, contentType string) (*model.ExtractedDocument, error) {
	if len(payload) == 0 {
		return nil, common.NewValidationError("payload", "cannot be empty")
	}

	start := time.Now()
	doc, err := resilience.Call(ctx, e.invoker, resilience.DependencyOCR,
		func(ctx context.Context) (*model.ExtractedDocument, error) {
			return e.ocr.Extract(ctx, payload, contentType)
		}, e.opts.Retry)
	if err != nil {
		return nil, err
	}

	doc.ProcessingTime = time.Since(start)
	if err := e.storage.SaveExtraction(ctx, receiptID, doc); err != nil {
		return nil, fmt.Errorf("extraction succeeded but could not be saved: %w", err)
	}

	e.logger.Info("receipt extracted",
		"receipt_id", receiptID,
		"vendor", doc.Vendor,
		"confidence", doc.Confidence,
		"tier", model.ExtractionTier(doc.Confidence),
		"duration", doc.ProcessingTime)
	return doc, nil
}

// Categorize suggests a category for one ledger entry.
func (e *Engine) Categorize(ctx context.Context, entry model.LedgerEntry) (model.CategorySuggestion, error) {
	categories, err := e.storage.GetCategories(ctx)
	if err != nil {
		return model.CategorySuggestion{}, err
	}
	return e.categorizeOne(ctx, entry, categories)
}

func (e *Engine) categorizeOne(ctx context.Context, entry model.LedgerEntry, categories []model.Category) (model.CategorySuggestion, error) {
	return resilience.Call(ctx, e.invoker, resilience.DependencyCategorize,
		func(ctx context.Context) (model.CategorySuggestion, error) {
			return e.categorizer.Suggest(ctx, entry.Description, categories)
		}, e.opts.Retry)
}

// Match ranks the unlinked ledger entries in the account and window against
// a receipt's extracted document.
func (e *Engine) Match(ctx context.Context, receiptID uuid.UUID, account string, window service.DateWindow) (model.RankedMatches, error) {
	receipt, err := e.storage.GetReceipt(ctx, receiptID)
	if err != nil {
		return model.RankedMatches{}, err
	}
	if receipt.Extracted == nil {
		return model.RankedMatches{}, common.NewValidationError("receipt", "has no extraction; run extract first")
	}

	candidates, err := e.storage.GetCandidateEntries(ctx, account, window)
	if err != nil {
		return model.RankedMatches{}, err
	}

	ranked := e.ranker.Rank(receipt.Extracted, candidates)
	if ranked.Best != nil {
		e.logger.Info("best match",
			"receipt_id", receiptID,
			"entry_id", ranked.Best.EntryID,
			"score", ranked.Best.Score,
			"tier", ranked.Best.Tier)
	}
	return ranked, nil
}

// Link commits a receipt-to-entry link. The storage layer performs the
// conflict check and the write atomically; a ConflictError surfaces
// untouched so callers can show the competing receipt.
func (e *Engine) Link(ctx context.Context, receiptID uuid.UUID, entryID string) (model.LinkResult, error) {
	if _, err := e.storage.GetLedgerEntry(ctx, entryID); err != nil {
		return model.LinkResult{}, err
	}
	if err := e.storage.LinkReceipt(ctx, receiptID, entryID); err != nil {
		return model.LinkResult{}, err
	}

	e.logger.Info("receipt linked", "receipt_id", receiptID, "entry_id", entryID)
	return model.LinkResult{ReceiptID: receiptID, EntryID: entryID}, nil
}

// Unlink removes a receipt's ledger link. Always permitted.
func (e *Engine) Unlink(ctx context.Context, receiptID uuid.UUID) error {
	if err := e.storage.UnlinkReceipt(ctx, receiptID); err != nil {
		return err
	}
	e.logger.Info("receipt unlinked", "receipt_id", receiptID)
	return nil
}

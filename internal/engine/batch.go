package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/booksflow/booksflow/internal/model"
)

// ExtractItem is one receipt payload submitted for batch extraction.
type ExtractItem struct {
	ReceiptID   uuid.UUID
	ContentType string
	Payload     []byte
}

// ExtractResult is the outcome of one batch extraction item. Err is set when
// the item failed; Document is then nil.
type ExtractResult struct {
	Document  *model.ExtractedDocument
	Err       error
	ReceiptID uuid.UUID
}

// CategorizeResult is the outcome of one batch categorization item. A failed
// item carries a fallback suggestion instead of aborting the batch.
type CategorizeResult struct {
	Err        error
	EntryID    string
	Suggestion model.CategorySuggestion
}

// BatchSummary reports per-item outcomes for one batch run.
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// ExtractBatch extracts a set of receipts with bounded concurrency: items
// are processed in batches of Options.BatchSize with a fixed delay between
// batches. Batches run strictly sequentially. One result is returned per
// input item, in input order; a failed item yields an error result without
// affecting its batch mates.
func (e *Engine) ExtractBatch(ctx context.Context, items []ExtractItem) ([]ExtractResult, BatchSummary) {
	results := make([]ExtractResult, len(items))

	summary := e.runBatches(ctx, len(items), func(ctx context.Context, i int) error {
		doc, err := e.ExtractReceipt(ctx, items[i].ReceiptID, items[i].Payload, items[i].ContentType)
		results[i] = ExtractResult{ReceiptID: items[i].ReceiptID, Document: doc, Err: err}
		return err
	})

	return results, summary
}

// CategorizeBatch categorizes a set of ledger entries with the same batching
// discipline as ExtractBatch. A failed item degrades to the fallback
// category at the lowest confidence with an explanatory reason, so the
// entry still lands in front of a reviewer.
func (e *Engine) CategorizeBatch(ctx context.Context, entries []model.LedgerEntry) ([]CategorizeResult, BatchSummary, error) {
	categories, err := e.storage.GetCategories(ctx)
	if err != nil {
		return nil, BatchSummary{}, err
	}

	results := make([]CategorizeResult, len(entries))

	summary := e.runBatches(ctx, len(entries), func(ctx context.Context, i int) error {
		suggestion, err := e.categorizeOne(ctx, entries[i], categories)
		if err != nil {
			results[i] = CategorizeResult{
				EntryID: entries[i].ID,
				Err:     err,
				Suggestion: model.CategorySuggestion{
					Category:   model.FallbackCategory,
					Confidence: 0,
					Reasoning:  fmt.Sprintf("categorization failed: %v", err),
					Fallback:   true,
				},
			}
			return err
		}
		results[i] = CategorizeResult{EntryID: entries[i].ID, Suggestion: suggestion}
		return nil
	})

	return results, summary, nil
}

// runBatches executes fn for each index with bounded concurrency. Each
// item's error is isolated; the summary counts outcomes.
func (e *Engine) runBatches(ctx context.Context, total int, fn func(ctx context.Context, i int) error) BatchSummary {
	start := time.Now()
	summary := BatchSummary{Total: total}

	var mu sync.Mutex
	for offset := 0; offset < total; offset += e.opts.BatchSize {
		end := offset + e.opts.BatchSize
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		for i := offset; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := fn(ctx, i)

				mu.Lock()
				if err != nil {
					summary.Failed++
				} else {
					summary.Succeeded++
				}
				mu.Unlock()

				if err != nil {
					e.logger.Warn("batch item failed", "index", i, "error", err)
				}
			}(i)
		}
		wg.Wait()

		if end < total && e.opts.InterBatchDelay > 0 {
			select {
			case <-ctx.Done():
				// Drain the remaining items so every input still gets a
				// result; with a dead context each fails fast.
				for i := end; i < total; i++ {
					if err := fn(ctx, i); err != nil {
						summary.Failed++
					} else {
						summary.Succeeded++
					}
				}
				summary.Duration = time.Since(start)
				return summary
			case <-time.After(e.opts.InterBatchDelay):
			}
		}
	}

	summary.Duration = time.Since(start)
	return summary
}

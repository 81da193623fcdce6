package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/model"
)

func seedCategories(t *testing.T, rig *testRig, names ...string) {
	t.Helper()
	for _, name := range names {
		_, err := rig.storage.CreateCategory(context.Background(), name, "")
		require.NoError(t, err)
	}
}

func batchEntries(n int) []model.LedgerEntry {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := make([]model.LedgerEntry, n)
	for i := range entries {
		entries[i] = model.LedgerEntry{
			ID:          fmt.Sprintf("txn-%d", i+1),
			Description: fmt.Sprintf("Meals purchase %d", i+1),
			Amount:      float64(10 + i),
			Date:        date,
			Account:     "checking",
			Source:      "books",
		}
	}
	return entries
}

func TestEngine_CategorizeBatch_OneFailureDoesNotAbortBatch(t *testing.T) {
	rig := newTestRig(t)
	seedCategories(t, rig, "Meals", "Travel")

	entries := batchEntries(5)
	// Item 3 hits a permanent provider error.
	rig.categorizer.errs[entries[2].Description] = &common.RetryableError{
		Err:       errProviderDown,
		Retryable: false,
	}

	results, summary, err := rig.engine.CategorizeBatch(context.Background(), entries)
	require.NoError(t, err)

	require.Len(t, results, 5, "one result per input item")
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	for i, result := range results {
		assert.Equal(t, entries[i].ID, result.EntryID, "results are tagged to their items")
		if i == 2 {
			require.Error(t, result.Err)
			assert.Equal(t, model.FallbackCategory, result.Suggestion.Category)
			assert.True(t, result.Suggestion.Fallback)
			assert.Zero(t, result.Suggestion.Confidence)
			assert.NotEmpty(t, result.Suggestion.Reasoning)
			continue
		}
		require.NoError(t, result.Err)
		assert.Equal(t, "Meals", result.Suggestion.Category)
		assert.False(t, result.Suggestion.Fallback)
	}
}

func TestEngine_CategorizeBatch_PermanentErrorNotRetried(t *testing.T) {
	rig := newTestRig(t)
	seedCategories(t, rig, "Meals")

	entries := batchEntries(1)
	rig.categorizer.errs[entries[0].Description] = &common.RetryableError{
		Err:       errProviderDown,
		Retryable: false,
	}

	_, summary, err := rig.engine.CategorizeBatch(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, rig.categorizer.callCount(), "non-retryable errors get exactly one attempt")
}

func TestEngine_CategorizeBatch_BatchesRunSequentially(t *testing.T) {
	rig := newTestRig(t)
	seedCategories(t, rig, "Meals")
	rig.engine.opts.BatchSize = 2
	rig.engine.opts.InterBatchDelay = 20 * time.Millisecond

	entries := batchEntries(4)
	start := time.Now()
	results, summary, err := rig.engine.CategorizeBatch(context.Background(), entries)
	require.NoError(t, err)

	assert.Len(t, results, 4)
	assert.Equal(t, 4, summary.Succeeded)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond,
		"the inter-batch delay separates consecutive batches")
}

func TestEngine_ExtractBatch_ResultsTaggedToItems(t *testing.T) {
	rig := newTestRig(t)
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	items := make([]ExtractItem, 3)
	for i := range items {
		receiptID := rig.saveReceipt(t, nil)
		payload := fmt.Sprintf("payload-%d", i)
		items[i] = ExtractItem{ReceiptID: receiptID, Payload: []byte(payload), ContentType: "image/png"}
		rig.ocr.results[payload] = starbucksDoc(date)
	}
	rig.ocr.errs["payload-1"] = &common.RetryableError{Err: errProviderDown, Retryable: false}

	results, summary := rig.engine.ExtractBatch(context.Background(), items)

	require.Len(t, results, 3)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	for i, result := range results {
		assert.Equal(t, items[i].ReceiptID, result.ReceiptID)
		if i == 1 {
			assert.Error(t, result.Err)
			assert.Nil(t, result.Document)
			continue
		}
		require.NoError(t, result.Err)
		require.NotNil(t, result.Document)
		assert.Equal(t, "Starbucks", result.Document.Vendor)
	}
}

func TestEngine_CategorizeBatch_EmptyInput(t *testing.T) {
	rig := newTestRig(t)

	results, summary, err := rig.engine.CategorizeBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, summary.Total)
}

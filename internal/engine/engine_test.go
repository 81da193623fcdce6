package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/model"
	"github.com/booksflow/booksflow/internal/resilience"
	"github.com/booksflow/booksflow/internal/service"
	"github.com/booksflow/booksflow/internal/storage"
)

func fastOptions() Options {
	return Options{
		BatchSize:       4,
		InterBatchDelay: time.Millisecond,
		Retry: service.RetryOptions{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
			CallTimeout: time.Second,
		},
	}
}

type testRig struct {
	engine      *Engine
	storage     *storage.SQLiteStorage
	ocr         *mockOCR
	categorizer *mockCategorizer
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })

	ocr := newMockOCR()
	categorizer := newMockCategorizer()
	invoker := resilience.NewInvoker(resilience.NewRegistry(5, time.Minute), nil)

	return &testRig{
		engine:      New(db, ocr, categorizer, invoker, fastOptions()),
		storage:     db,
		ocr:         ocr,
		categorizer: categorizer,
	}
}

func (r *testRig) saveReceipt(t *testing.T, doc *model.ExtractedDocument) uuid.UUID {
	t.Helper()
	receipt := &model.Receipt{
		ID:         uuid.New(),
		FileName:   "receipt.pdf",
		UploadedAt: time.Now().UTC(),
		Extracted:  doc,
	}
	require.NoError(t, r.storage.SaveReceipt(context.Background(), receipt))
	return receipt.ID
}

func (r *testRig) saveEntries(t *testing.T, entries ...model.LedgerEntry) {
	t.Helper()
	require.NoError(t, r.storage.SaveLedgerEntries(context.Background(), entries))
}

func starbucksDoc(date time.Time) *model.ExtractedDocument {
	amount := 12.50
	return &model.ExtractedDocument{
		Vendor:     "Starbucks",
		Amount:     &amount,
		Date:       &date,
		Currency:   "USD",
		Confidence: 0.95,
	}
}

func TestEngine_MatchFindsBestCandidate(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	receiptID := rig.saveReceipt(t, starbucksDoc(date))
	rig.saveEntries(t,
		model.LedgerEntry{ID: "exact", Vendor: "SBUX", Description: "SBUX 123", Amount: 12.50, Date: date, Account: "checking", Source: "books"},
		model.LedgerEntry{ID: "far", Vendor: "Delta Airlines", Description: "DELTA AIR", Amount: 540.00, Date: date.AddDate(0, 0, 9), Account: "checking", Source: "books"},
	)

	window := service.DateWindow{Start: date.AddDate(0, 0, -14), End: date.AddDate(0, 0, 14)}
	ranked, err := rig.engine.Match(ctx, receiptID, "checking", window)

	require.NoError(t, err)
	require.NotNil(t, ranked.Best)
	assert.Equal(t, "exact", ranked.Best.EntryID)
	assert.Equal(t, model.TierHigh, ranked.Best.Tier)
	require.Len(t, ranked.Candidates, 2)
}

func TestEngine_MatchRequiresExtraction(t *testing.T) {
	rig := newTestRig(t)
	receiptID := rig.saveReceipt(t, nil)

	_, err := rig.engine.Match(context.Background(), receiptID, "checking", service.DateWindow{
		Start: time.Now().AddDate(0, 0, -7),
		End:   time.Now(),
	})

	var validation *common.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestEngine_LinkConflictAndRecovery(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first := rig.saveReceipt(t, starbucksDoc(date))
	second := rig.saveReceipt(t, starbucksDoc(date))
	rig.saveEntries(t, model.LedgerEntry{
		ID: "txn-1", Vendor: "SBUX", Description: "SBUX 123",
		Amount: 12.50, Date: date, Account: "checking", Source: "books",
	})

	result, err := rig.engine.Link(ctx, first, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "txn-1", result.EntryID)

	_, err = rig.engine.Link(ctx, second, "txn-1")
	var conflict *common.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first, conflict.ConflictingReceipt)

	require.NoError(t, rig.engine.Unlink(ctx, first))
	_, err = rig.engine.Link(ctx, second, "txn-1")
	require.NoError(t, err)
}

func TestEngine_LinkUnknownEntry(t *testing.T) {
	rig := newTestRig(t)
	receiptID := rig.saveReceipt(t, nil)

	_, err := rig.engine.Link(context.Background(), receiptID, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestEngine_ExtractReceiptPersistsResult(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	receiptID := rig.saveReceipt(t, nil)
	rig.ocr.results["payload-1"] = starbucksDoc(date)

	doc, err := rig.engine.ExtractReceipt(ctx, receiptID, []byte("payload-1"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "Starbucks", doc.Vendor)
	assert.Greater(t, doc.ProcessingTime, time.Duration(0))

	stored, err := rig.storage.GetReceipt(ctx, receiptID)
	require.NoError(t, err)
	require.NotNil(t, stored.Extracted)
	assert.Equal(t, "Starbucks", stored.Extracted.Vendor)
}

func TestEngine_ExtractReceiptValidatesPayload(t *testing.T) {
	rig := newTestRig(t)

	_, err := rig.engine.ExtractReceipt(context.Background(), uuid.New(), nil, "application/pdf")
	var validation *common.ValidationError
	assert.ErrorAs(t, err, &validation)
	assert.Zero(t, rig.ocr.calls, "validation failures never reach the provider")
}

func TestEngine_ExtractReceiptExhaustsRetries(t *testing.T) {
	rig := newTestRig(t)
	receiptID := rig.saveReceipt(t, nil)
	rig.ocr.errs["bad"] = errProviderDown

	_, err := rig.engine.ExtractReceipt(context.Background(), receiptID, []byte("bad"), "image/png")

	var external *common.ExternalServiceError
	require.ErrorAs(t, err, &external)
	assert.Equal(t, 2, external.Attempts)
	assert.Equal(t, 2, rig.ocr.calls)
}

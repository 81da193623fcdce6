package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/model"
	"github.com/booksflow/booksflow/internal/service"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	db, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testReceipt() *model.Receipt {
	return &model.Receipt{
		ID:          uuid.New(),
		FileName:    "receipt-001.pdf",
		ContentType: "application/pdf",
		UploadedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testEntry(id, account string, date time.Time, amount float64) model.LedgerEntry {
	return model.LedgerEntry{
		ID:          id,
		Date:        date,
		Description: "STARBUCKS STORE " + id,
		Vendor:      "Starbucks",
		Account:     account,
		Source:      "books",
		Amount:      amount,
	}
}

func TestSQLiteStorage_ReceiptRoundTrip(t *testing.T) {
	db := newTestStorage(t)
	ctx := context.Background()

	receipt := testReceipt()
	amount := 12.50
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	receipt.Extracted = &model.ExtractedDocument{
		Vendor:           "Starbucks",
		Amount:           &amount,
		Date:             &date,
		Currency:         "USD",
		Confidence:       0.95,
		VendorConfidence: 0.97,
		AmountConfidence: 0.93,
		RawPayload:       []byte(`{"vendor":"Starbucks"}`),
		ProcessingTime:   420 * time.Millisecond,
	}

	require.NoError(t, db.SaveReceipt(ctx, receipt))

	got, err := db.GetReceipt(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.FileName, got.FileName)
	require.NotNil(t, got.Extracted)
	assert.Equal(t, "Starbucks", got.Extracted.Vendor)
	require.NotNil(t, got.Extracted.Amount)
	assert.Equal(t, 12.50, *got.Extracted.Amount)
	require.NotNil(t, got.Extracted.Date)
	assert.True(t, got.Extracted.Date.Equal(date))
	assert.Equal(t, 0.95, got.Extracted.Confidence)
	assert.Equal(t, 420*time.Millisecond, got.Extracted.ProcessingTime)
	assert.Empty(t, got.LinkedEntryID)
}

func TestSQLiteStorage_GetReceiptNotFound(t *testing.T) {
	db := newTestStorage(t)

	_, err := db.GetReceipt(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_SaveLedgerEntriesDeduplicates(t *testing.T) {
	db := newTestStorage(t)
	ctx := context.Background()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	entry := testEntry("txn-1", "checking", date, 12.50)
	require.NoError(t, db.SaveLedgerEntries(ctx, []model.LedgerEntry{entry}))
	// Re-importing the same transactions is safe.
	require.NoError(t, db.SaveLedgerEntries(ctx, []model.LedgerEntry{entry}))

	entries, err := db.GetCandidateEntries(ctx, "checking", service.DateWindow{
		Start: date.AddDate(0, 0, -1),
		End:   date.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLiteStorage_GetCandidateEntries(t *testing.T) {
	db := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	entries := []model.LedgerEntry{
		testEntry("in-window-old", "checking", base.AddDate(0, 0, -5), 10),
		testEntry("in-window-new", "checking", base, 20),
		testEntry("out-of-window", "checking", base.AddDate(0, -2, 0), 30),
		testEntry("other-account", "savings", base, 40),
	}
	require.NoError(t, db.SaveLedgerEntries(ctx, entries))

	window := service.DateWindow{Start: base.AddDate(0, 0, -10), End: base}
	got, err := db.GetCandidateEntries(ctx, "checking", window)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "in-window-new", got[0].ID, "candidates are ordered date descending")
	assert.Equal(t, "in-window-old", got[1].ID)
}

func TestSQLiteStorage_GetCandidateEntriesExcludesLinked(t *testing.T) {
	db := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveLedgerEntries(ctx, []model.LedgerEntry{
		testEntry("linked", "checking", base, 10),
		testEntry("free", "checking", base, 20),
	}))

	receipt := testReceipt()
	require.NoError(t, db.SaveReceipt(ctx, receipt))
	require.NoError(t, db.LinkReceipt(ctx, receipt.ID, "linked"))

	window := service.DateWindow{Start: base.AddDate(0, 0, -1), End: base.AddDate(0, 0, 1)}
	got, err := db.GetCandidateEntries(ctx, "checking", window)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "free", got[0].ID)
}

func TestSQLiteStorage_GetCandidateEntriesCapped(t *testing.T) {
	db := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	entries := make([]model.LedgerEntry, 0, service.CandidateLimit+20)
	for i := 0; i < service.CandidateLimit+20; i++ {
		entry := testEntry(fmt.Sprintf("txn-%03d", i), "checking", base.Add(time.Duration(i)*time.Minute), float64(i))
		entries = append(entries, entry)
	}
	require.NoError(t, db.SaveLedgerEntries(ctx, entries))

	window := service.DateWindow{Start: base.AddDate(0, 0, -1), End: base.AddDate(0, 0, 1)}
	got, err := db.GetCandidateEntries(ctx, "checking", window)
	require.NoError(t, err)
	assert.Len(t, got, service.CandidateLimit)
}

func TestSQLiteStorage_LinkConflict(t *testing.T) {
	db := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveLedgerEntries(ctx, []model.LedgerEntry{
		testEntry("txn-1", "checking", base, 10),
	}))

	first := testReceipt()
	second := testReceipt()
	require.NoError(t, db.SaveReceipt(ctx, first))
	require.NoError(t, db.SaveReceipt(ctx, second))

	require.NoError(t, db.LinkReceipt(ctx, first.ID, "txn-1"))

	// Linking a different receipt to the same entry must fail and name the
	// existing receipt, leaving the original link untouched.
	err := db.LinkReceipt(ctx, second.ID, "txn-1")
	var conflict *common.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "txn-1", conflict.EntryID)
	assert.Equal(t, first.ID, conflict.ConflictingReceipt)

	linked, err := db.GetLinkedReceipt(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, linked)

	// Re-linking the same pair is idempotent.
	assert.NoError(t, db.LinkReceipt(ctx, first.ID, "txn-1"))
}

func TestSQLiteStorage_UnlinkThenLinkSucceeds(t *testing.T) {
	db := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveLedgerEntries(ctx, []model.LedgerEntry{
		testEntry("txn-1", "checking", base, 10),
	}))

	first := testReceipt()
	second := testReceipt()
	require.NoError(t, db.SaveReceipt(ctx, first))
	require.NoError(t, db.SaveReceipt(ctx, second))

	require.NoError(t, db.LinkReceipt(ctx, first.ID, "txn-1"))
	require.NoError(t, db.UnlinkReceipt(ctx, first.ID))
	require.NoError(t, db.LinkReceipt(ctx, second.ID, "txn-1"))

	linked, err := db.GetLinkedReceipt(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, linked)
}

func TestSQLiteStorage_UnlinkIsAlwaysPermitted(t *testing.T) {
	db := newTestStorage(t)
	receipt := testReceipt()
	require.NoError(t, db.SaveReceipt(context.Background(), receipt))

	// No link exists; unlink is still a success.
	assert.NoError(t, db.UnlinkReceipt(context.Background(), receipt.ID))
}

func TestSQLiteStorage_RelinkReceiptMovesLink(t *testing.T) {
	db := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveLedgerEntries(ctx, []model.LedgerEntry{
		testEntry("txn-1", "checking", base, 10),
		testEntry("txn-2", "checking", base, 20),
	}))

	receipt := testReceipt()
	require.NoError(t, db.SaveReceipt(ctx, receipt))
	require.NoError(t, db.LinkReceipt(ctx, receipt.ID, "txn-1"))
	require.NoError(t, db.LinkReceipt(ctx, receipt.ID, "txn-2"))

	_, err := db.GetLinkedReceipt(ctx, "txn-1")
	assert.ErrorIs(t, err, common.ErrNotFound, "the old entry is released")

	linked, err := db.GetLinkedReceipt(ctx, "txn-2")
	require.NoError(t, err)
	assert.Equal(t, receipt.ID, linked)
}

func TestSQLiteStorage_ListUnlinkedReceipts(t *testing.T) {
	db := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveLedgerEntries(ctx, []model.LedgerEntry{
		testEntry("txn-1", "checking", base, 10),
	}))

	linked := testReceipt()
	unlinked := testReceipt()
	require.NoError(t, db.SaveReceipt(ctx, linked))
	require.NoError(t, db.SaveReceipt(ctx, unlinked))
	require.NoError(t, db.LinkReceipt(ctx, linked.ID, "txn-1"))

	got, err := db.ListUnlinkedReceipts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, unlinked.ID, got[0].ID)
}

func TestSQLiteStorage_Categories(t *testing.T) {
	db := newTestStorage(t)
	ctx := context.Background()

	created, err := db.CreateCategory(ctx, "Meals & Entertainment", "client meals, team lunches")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = db.CreateCategory(ctx, "Office Supplies", "")
	require.NoError(t, err)

	categories, err := db.GetCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Meals & Entertainment", categories[0].Name, "categories sort by name")

	_, err = db.CreateCategory(ctx, "", "")
	assert.Error(t, err, "category name is required")
}

func TestSQLiteStorage_ValidationErrors(t *testing.T) {
	db := newTestStorage(t)
	ctx := context.Background()

	var validation *common.ValidationError

	err := db.SaveReceipt(ctx, &model.Receipt{})
	assert.ErrorAs(t, err, &validation)

	err = db.SaveLedgerEntries(ctx, nil)
	assert.ErrorAs(t, err, &validation)

	_, err = db.GetCandidateEntries(ctx, "", service.DateWindow{})
	assert.ErrorAs(t, err, &validation)

	err = db.LinkReceipt(ctx, uuid.Nil, "txn-1")
	assert.ErrorAs(t, err, &validation)
}

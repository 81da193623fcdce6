package match

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booksflow/booksflow/internal/model"
)

func TestRanker_OrdersCandidatesByScore(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := docWith("Starbucks", 12.50, date)
	entries := []model.LedgerEntry{
		{ID: "far", Vendor: "Chevron", Amount: 88.00, Date: date.AddDate(0, 0, 20)},
		{ID: "exact", Vendor: "SBUX", Amount: 12.50, Date: date},
		{ID: "close", Vendor: "Starbucks Coffee", Amount: 12.50, Date: date.AddDate(0, 0, 2)},
	}

	ranked := NewRanker(nil).Rank(doc, entries)

	require.Len(t, ranked.Candidates, 3)
	assert.Equal(t, "exact", ranked.Candidates[0].Entry.ID)
	for i := 1; i < len(ranked.Candidates); i++ {
		assert.GreaterOrEqual(t, ranked.Candidates[i-1].Score, ranked.Candidates[i].Score)
	}

	require.NotNil(t, ranked.Best)
	assert.Equal(t, "exact", ranked.Best.EntryID)
	assert.Equal(t, model.TierHigh, ranked.Best.Tier)
}

func TestRanker_CapsCandidateList(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := docWith("Starbucks", 12.50, date)

	entries := make([]model.LedgerEntry, 20)
	for i := range entries {
		entries[i] = model.LedgerEntry{
			ID:     fmt.Sprintf("txn-%d", i),
			Vendor: "Starbucks",
			Amount: 12.50,
			Date:   date.AddDate(0, 0, i),
		}
	}

	ranked := NewRanker(nil).Rank(doc, entries)
	assert.Len(t, ranked.Candidates, MaxRankedCandidates)
}

func TestRanker_NoBestMatchBelowThreshold(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := docWith("Starbucks", 12.50, date)
	entries := []model.LedgerEntry{
		{ID: "unrelated", Vendor: "Delta Airlines", Amount: 540.00, Date: date.AddDate(0, 2, 0)},
	}

	ranked := NewRanker(nil).Rank(doc, entries)
	require.Len(t, ranked.Candidates, 1)
	assert.Nil(t, ranked.Best, "a score below the matching floor yields no best match")
}

func TestRanker_EmptyInputs(t *testing.T) {
	ranked := NewRanker(nil).Rank(nil, nil)
	assert.Empty(t, ranked.Candidates)
	assert.Nil(t, ranked.Best)

	date := time.Now()
	ranked = NewRanker(nil).Rank(docWith("Starbucks", 1.0, date), nil)
	assert.Empty(t, ranked.Candidates)
}

package model

import "github.com/google/uuid"

// MaxMatchReasons caps the human-readable explanation list on a candidate.
const MaxMatchReasons = 5

// ComponentScores itemizes the weighted contribution of each matching signal.
type ComponentScores struct {
	Amount float64
	Date   float64
	Vendor float64
}

// Sum returns the total of the component contributions.
func (c ComponentScores) Sum() float64 {
	return c.Amount + c.Date + c.Vendor
}

// MatchCandidate is a scored pairing of one extracted document against one
// ledger entry. Candidates are transient: recomputed on every matching request
// and never persisted.
type MatchCandidate struct {
	Entry      LedgerEntry
	Reasons    []string
	Score      float64
	Components ComponentScores
	Bonus      float64
}

// AddReason appends a human-readable explanation, dropping anything past the
// cap.
func (c *MatchCandidate) AddReason(reason string) {
	if len(c.Reasons) < MaxMatchReasons {
		c.Reasons = append(c.Reasons, reason)
	}
}

// BestMatch summarizes the top-ranked candidate for a matching request.
type BestMatch struct {
	EntryID string
	Tier    Tier
	Score   float64
}

// RankedMatches is the result of matching one extracted document against a
// candidate set.
type RankedMatches struct {
	Best       *BestMatch
	Candidates []MatchCandidate // descending by score, at most five
}

// LinkResult reports the outcome of committing a receipt/entry link.
type LinkResult struct {
	ReceiptID uuid.UUID
	EntryID   string
}

package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// LedgerEntry represents a recorded financial transaction against which a
// receipt may be matched. Entries are read-only within the matching subsystem;
// they are written only by the sync and import paths.
type LedgerEntry struct {
	Date        time.Time
	ID          string
	Description string // raw transaction description
	Vendor      string // cleaned vendor name, may be empty
	Account     string
	Source      string // where this entry came from: books, plaid, ofx
	Amount      float64
}

// Hash returns a stable hash for duplicate detection across import sources.
func (e *LedgerEntry) Hash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		e.Date.Format("2006-01-02"),
		e.Amount,
		e.Description,
		e.Account)
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum)
}

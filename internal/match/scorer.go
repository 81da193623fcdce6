package match

import (
	"fmt"
	"math"

	"github.com/booksflow/booksflow/internal/model"
)

// Signal weights. They sum to 1.0; amount agreement dominates because two
// entries for the same purchase almost always agree on amount before they
// agree on anything else. A 40/30/30 split existed in an earlier revision of
// this engine and must not be reintroduced alongside these values.
const (
	amountWeight = 0.5
	dateWeight   = 0.3
	vendorWeight = 0.2
)

// confidenceBonus rewards candidates whose source extraction was high
// quality on both the vendor and amount fields.
const (
	confidenceBonus          = 0.1
	bonusConfidenceThreshold = 0.9
)

// Scorer combines amount, date-proximity and vendor-similarity signals into
// one weighted score per candidate.
type Scorer struct{}

// NewScorer creates a scorer with the standard weights.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score evaluates one extracted document against one ledger entry and
// returns a candidate with an overall score in [0,1], itemized component
// contributions and up to five human-readable reasons.
func (s *Scorer) Score(doc *model.ExtractedDocument, entry model.LedgerEntry) model.MatchCandidate {
	candidate := model.MatchCandidate{Entry: entry}

	s.scoreAmount(doc, entry, &candidate)
	s.scoreDate(doc, entry, &candidate)
	s.scoreVendor(doc, entry, &candidate)

	score := candidate.Components.Sum()
	if doc.VendorConfidence > bonusConfidenceThreshold && doc.AmountConfidence > bonusConfidenceThreshold {
		bonus := confidenceBonus
		if score+bonus > 1.0 {
			bonus = 1.0 - score
		}
		if bonus > 0 {
			candidate.Bonus = bonus
			candidate.AddReason("high-confidence extraction bonus")
		}
	}

	candidate.Score = score + candidate.Bonus
	return candidate
}

func (s *Scorer) scoreAmount(doc *model.ExtractedDocument, entry model.LedgerEntry, candidate *model.MatchCandidate) {
	if !doc.HasAmount() {
		candidate.AddReason("no amount extracted")
		return
	}

	extracted := math.Abs(*doc.Amount)
	recorded := math.Abs(entry.Amount)
	diff := math.Abs(extracted - recorded)

	// Tolerance absorbs tips, card fees and rounding.
	band := math.Max(1.0, recorded*0.05)

	var factor float64
	var reason string
	switch {
	case diff == 0:
		factor, reason = 1.0, fmt.Sprintf("amount matches exactly (%.2f)", extracted)
	case diff <= band:
		factor, reason = 0.9, fmt.Sprintf("amount within tolerance (off by %.2f)", diff)
	case diff <= 2*band:
		factor, reason = 0.7, fmt.Sprintf("amount close (off by %.2f)", diff)
	case diff <= 4*band:
		factor, reason = 0.3, fmt.Sprintf("amount in range (off by %.2f)", diff)
	default:
		candidate.AddReason(fmt.Sprintf("amount differs by %.2f", diff))
		return
	}

	candidate.Components.Amount = factor * amountWeight
	candidate.AddReason(reason)
}

func (s *Scorer) scoreDate(doc *model.ExtractedDocument, entry model.LedgerEntry, candidate *model.MatchCandidate) {
	if !doc.HasDate() {
		candidate.AddReason("no date extracted")
		return
	}

	days := int(math.Abs(doc.Date.Sub(entry.Date).Hours()) / 24)

	var factor float64
	var reason string
	switch {
	case days == 0:
		factor, reason = 1.0, "same day"
	case days <= 1:
		factor, reason = 0.9, "1 day apart"
	case days <= 3:
		factor, reason = 0.7, fmt.Sprintf("%d days apart", days)
	case days <= 7:
		factor, reason = 0.4, fmt.Sprintf("%d days apart", days)
	case days <= 14:
		factor, reason = 0.2, fmt.Sprintf("%d days apart", days)
	default:
		candidate.AddReason(fmt.Sprintf("dates %d days apart", days))
		return
	}

	candidate.Components.Date = factor * dateWeight
	candidate.AddReason(reason)
}

func (s *Scorer) scoreVendor(doc *model.ExtractedDocument, entry model.LedgerEntry, candidate *model.MatchCandidate) {
	entryVendor := entry.Vendor
	if entryVendor == "" {
		entryVendor = entry.Description
	}
	if !doc.HasVendor() || entryVendor == "" {
		candidate.AddReason("vendor unavailable")
		return
	}

	if Normalize(doc.Vendor) == Normalize(entryVendor) {
		candidate.Components.Vendor = vendorWeight
		candidate.AddReason("vendor matches exactly")
		return
	}

	sim := Similarity(doc.Vendor, entryVendor)
	var factor float64
	switch {
	case sim > 0.9:
		factor = 0.9
	case sim > 0.7:
		factor = 0.7
	case sim > 0.5:
		factor = 0.4
	}

	// The alias table is an independent signal; take whichever is stronger.
	if SameVendor(doc.Vendor, entryVendor) && factor < 0.8 {
		candidate.Components.Vendor = 0.8 * vendorWeight
		candidate.AddReason(fmt.Sprintf("known alias of %q", doc.Vendor))
		return
	}

	if factor == 0 {
		candidate.AddReason(fmt.Sprintf("vendor similarity too low (%.2f)", sim))
		return
	}

	candidate.Components.Vendor = factor * vendorWeight
	candidate.AddReason(fmt.Sprintf("vendor similarity %.2f", sim))
}

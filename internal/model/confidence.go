package model

// Tier is a discrete confidence bucket derived from a continuous score.
type Tier string

// Confidence tiers, ordered high > medium > low > none.
const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierNone   Tier = "none"
)

// Rank returns the tier's position in the total order. Higher is better.
func (t Tier) Rank() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	default:
		return 0
	}
}

// Two independent threshold policies exist in this domain: one for
// extraction/categorization confidence and one for match scores. They use
// different cutoffs and must not share constants.

// Extraction confidence thresholds.
const (
	extractionHighThreshold   = 0.90
	extractionMediumThreshold = 0.70
)

// Match score thresholds.
const (
	matchHighThreshold   = 0.80
	matchMediumThreshold = 0.60
	matchLowThreshold    = 0.30
)

// ExtractionTier maps an extraction or categorization confidence score to a
// tier. Extraction never produces TierNone; a score is at worst low.
func ExtractionTier(score float64) Tier {
	switch {
	case score >= extractionHighThreshold:
		return TierHigh
	case score >= extractionMediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// MatchTier maps a match score to a tier.
func MatchTier(score float64) Tier {
	switch {
	case score >= matchHighThreshold:
		return TierHigh
	case score >= matchMediumThreshold:
		return TierMedium
	case score >= matchLowThreshold:
		return TierLow
	default:
		return TierNone
	}
}

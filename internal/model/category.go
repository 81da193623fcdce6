package model

import (
	"fmt"
	"strings"
	"time"
)

// FallbackCategory is the safe placeholder used when categorization fails or
// the provider suggests a category outside the allowed list.
const FallbackCategory = "Uncategorized"

// FallbackConfidenceCap bounds the confidence of any substituted suggestion.
const FallbackConfidenceCap = 0.5

// MaxAlternativeCategories caps the alternatives a suggestion may carry.
const MaxAlternativeCategories = 3

// Category is an allowed bookkeeping category for ledger entries.
type Category struct {
	CreatedAt   time.Time
	Name        string
	Description string
	ID          int
}

// Validate checks category fields.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("category name is required")
	}
	return nil
}

// CategorySuggestion is the categorization result for one ledger entry.
type CategorySuggestion struct {
	Category     string
	Reasoning    string
	Alternatives []string
	Confidence   float64
	Fallback     bool // true when substituted after a failure or invalid response
}

// Clamp normalizes a suggestion in place: confidence to [0,1] and
// alternatives to the allowed maximum.
func (s *CategorySuggestion) Clamp() {
	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 1 {
		s.Confidence = 1
	}
	if len(s.Alternatives) > MaxAlternativeCategories {
		s.Alternatives = s.Alternatives[:MaxAlternativeCategories]
	}
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractionTier(t *testing.T) {
	tests := []struct {
		want  Tier
		score float64
	}{
		{want: TierHigh, score: 1.0},
		{want: TierHigh, score: 0.95},
		{want: TierHigh, score: 0.90},
		{want: TierMedium, score: 0.89},
		{want: TierMedium, score: 0.70},
		{want: TierLow, score: 0.69},
		{want: TierLow, score: 0.0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractionTier(tt.score), "score %.2f", tt.score)
	}
}

func TestMatchTier(t *testing.T) {
	tests := []struct {
		want  Tier
		score float64
	}{
		{want: TierHigh, score: 1.0},
		{want: TierHigh, score: 0.80},
		{want: TierMedium, score: 0.79},
		{want: TierMedium, score: 0.60},
		{want: TierLow, score: 0.59},
		{want: TierLow, score: 0.30},
		{want: TierNone, score: 0.29},
		{want: TierNone, score: 0.0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchTier(tt.score), "score %.2f", tt.score)
	}
}

func TestTier_TotalOrder(t *testing.T) {
	ordered := []Tier{TierNone, TierLow, TierMedium, TierHigh}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank())
	}
}

func TestCategorySuggestion_Clamp(t *testing.T) {
	s := CategorySuggestion{
		Category:     "Meals",
		Confidence:   1.7,
		Alternatives: []string{"a", "b", "c", "d", "e"},
	}
	s.Clamp()
	assert.Equal(t, 1.0, s.Confidence)
	assert.Len(t, s.Alternatives, MaxAlternativeCategories)

	s.Confidence = -0.2
	s.Clamp()
	assert.Equal(t, 0.0, s.Confidence)
}

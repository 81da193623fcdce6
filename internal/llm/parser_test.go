package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booksflow/booksflow/internal/common"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    ClassificationResponse
		wantErr bool
	}{
		{
			name:    "clean JSON",
			content: `{"category": "Dining", "confidence": 0.92, "reasoning": "coffee shop"}`,
			want: ClassificationResponse{
				Category:   "Dining",
				Confidence: 0.92,
				Reasoning:  "coffee shop",
			},
		},
		{
			name: "markdown wrapped JSON",
			content: "```json\n" +
				`{"category": "Travel", "confidence": 0.8}` +
				"\n```",
			want: ClassificationResponse{
				Category:   "Travel",
				Confidence: 0.8,
			},
		},
		{
			name:    "prose around JSON",
			content: `Here is my answer: {"category": "Office Supplies", "confidence": 0.75} Hope that helps!`,
			want: ClassificationResponse{
				Category:   "Office Supplies",
				Confidence: 0.75,
			},
		},
		{
			name:    "alternatives preserved",
			content: `{"category": "Dining", "confidence": 0.6, "alternatives": ["Travel", "Groceries"]}`,
			want: ClassificationResponse{
				Category:     "Dining",
				Confidence:   0.6,
				Alternatives: []string{"Travel", "Groceries"},
			},
		},
		{
			name:    "missing category",
			content: `{"confidence": 0.9}`,
			wantErr: true,
		},
		{
			name:    "blank category",
			content: `{"category": "  ", "confidence": 0.9}`,
			wantErr: true,
		},
		{
			name:    "missing confidence",
			content: `{"category": "Dining"}`,
			wantErr: true,
		},
		{
			name:    "confidence out of range",
			content: `{"category": "Dining", "confidence": 1.7}`,
			wantErr: true,
		},
		{
			name:    "not JSON at all",
			content: "I could not classify this transaction.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClassification(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "plain JSON untouched",
			content: `{"a": 1}`,
			want:    `{"a": 1}`,
		},
		{
			name:    "fenced with language tag",
			content: "```json\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "fenced without language tag",
			content: "```\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "surrounding prose stripped",
			content: "Sure! {\"a\": 1} Done.",
			want:    `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownWrapper(tt.content))
		})
	}
}

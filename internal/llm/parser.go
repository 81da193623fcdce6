package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/booksflow/booksflow/internal/common"
)

// classificationPayload is the JSON shape every provider must return.
type classificationPayload struct {
	Category     string   `json:"category"`
	Confidence   *float64 `json:"confidence"`
	Reasoning    string   `json:"reasoning,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// parseClassification validates and decodes a provider's raw text into a
// ClassificationResponse. Missing required fields or out-of-range values are
// treated as a malformed response, not silently defaulted.
func parseClassification(content string) (ClassificationResponse, error) {
	content = cleanMarkdownWrapper(content)

	var payload classificationPayload
	dec := json.NewDecoder(strings.NewReader(content))
	if err := dec.Decode(&payload); err != nil {
		return ClassificationResponse{}, fmt.Errorf("%w: invalid JSON: %v", common.ErrMalformedResponse, err)
	}

	if strings.TrimSpace(payload.Category) == "" {
		return ClassificationResponse{}, fmt.Errorf("%w: missing category", common.ErrMalformedResponse)
	}
	if payload.Confidence == nil {
		return ClassificationResponse{}, fmt.Errorf("%w: missing confidence", common.ErrMalformedResponse)
	}
	if *payload.Confidence < 0 || *payload.Confidence > 1 {
		return ClassificationResponse{}, fmt.Errorf("%w: confidence %v out of range", common.ErrMalformedResponse, *payload.Confidence)
	}

	return ClassificationResponse{
		Category:     strings.TrimSpace(payload.Category),
		Confidence:   *payload.Confidence,
		Reasoning:    strings.TrimSpace(payload.Reasoning),
		Alternatives: payload.Alternatives,
	}, nil
}

// cleanMarkdownWrapper strips a markdown code fence if the model wrapped the
// JSON in one, and trims any prose around the outermost object.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx != -1 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end != -1 && end > start {
		content = content[start : end+1]
	}

	return content
}

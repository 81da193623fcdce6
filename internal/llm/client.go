package llm

import (
	"context"
)

// Client defines the interface for LLM providers.
type Client interface {
	Classify(ctx context.Context, prompt string) (ClassificationResponse, error)
}

// ClassificationResponse contains the provider's parsed classification result.
type ClassificationResponse struct {
	Category     string
	Reasoning    string
	Alternatives []string
	Confidence   float64
}

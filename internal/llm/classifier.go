package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/booksflow/booksflow/internal/model"
)

// Classifier implements the service.Categorizer interface using LLM APIs.
type Classifier struct {
	client  Client
	cache   *suggestionCache
	logger  *slog.Logger
	limiter *rate.Limiter
}

// Config holds configuration for the LLM classifier.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	CacheTTL    time.Duration
	Temperature float64
	MaxTokens   int
	RateLimit   int // requests per minute
}

// NewClassifier creates a new LLM-based classifier.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client, err = newOpenAIClient(cfg)
	case "anthropic", "":
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	rpm := cfg.RateLimit
	if rpm <= 0 {
		rpm = 60
	}

	return &Classifier{
		client:  client,
		cache:   newSuggestionCache(cfg.CacheTTL),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
	}, nil
}

// NewClassifierWithClient builds a classifier around an existing provider
// client. Used by tests and by callers that manage their own client.
func NewClassifierWithClient(client Client, logger *slog.Logger) *Classifier {
	return &Classifier{
		client:  client,
		cache:   newSuggestionCache(0),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

// Suggest classifies a ledger entry description into one of the supplied
// categories. A provider answer outside the category list is replaced with
// the fallback category so a misbehaving model can never invent bookkeeping
// categories downstream.
func (c *Classifier) Suggest(ctx context.Context, description string, categories []model.Category) (model.CategorySuggestion, error) {
	key := cacheKey(description)
	if suggestion, found := c.cache.get(key); found {
		c.logger.Debug("cache hit for description", "description", description)
		return suggestion, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return model.CategorySuggestion{}, fmt.Errorf("rate limit wait: %w", err)
	}

	response, err := c.client.Classify(ctx, buildPrompt(description, categories))
	if err != nil {
		return model.CategorySuggestion{}, err
	}

	suggestion := c.normalize(response, categories, description)
	suggestion.Clamp()
	c.cache.set(key, suggestion)

	c.logger.Info("entry categorized",
		"description", description,
		"category", suggestion.Category,
		"confidence", suggestion.Confidence,
		"fallback", suggestion.Fallback)

	return suggestion, nil
}

// normalize applies the category membership rule to a provider response.
func (c *Classifier) normalize(response ClassificationResponse, categories []model.Category, description string) model.CategorySuggestion {
	members := make(map[string]string, len(categories))
	for _, cat := range categories {
		members[strings.ToLower(cat.Name)] = cat.Name
	}

	suggestion := model.CategorySuggestion{
		Category:   response.Category,
		Confidence: response.Confidence,
		Reasoning:  response.Reasoning,
	}

	if canonical, ok := members[strings.ToLower(response.Category)]; ok {
		suggestion.Category = canonical
	} else {
		c.logger.Warn("provider suggested unknown category, substituting fallback",
			"description", description,
			"suggested", response.Category)
		suggestion.Category = model.FallbackCategory
		suggestion.Fallback = true
		if suggestion.Confidence > model.FallbackConfidenceCap {
			suggestion.Confidence = model.FallbackConfidenceCap
		}
	}

	for _, alt := range response.Alternatives {
		if canonical, ok := members[strings.ToLower(alt)]; ok && canonical != suggestion.Category {
			suggestion.Alternatives = append(suggestion.Alternatives, canonical)
		}
	}

	return suggestion
}

// buildPrompt creates the prompt for ledger entry classification.
func buildPrompt(description string, categories []model.Category) string {
	var categoryList strings.Builder
	for _, cat := range categories {
		if cat.Description != "" {
			fmt.Fprintf(&categoryList, "- %s: %s\n", cat.Name, cat.Description)
		} else {
			fmt.Fprintf(&categoryList, "- %s\n", cat.Name)
		}
	}

	return fmt.Sprintf(`Classify this ledger entry into the most appropriate bookkeeping category.

Ledger Entry:
%s

Allowed Categories:
%s
Instructions:
1. Pick exactly one category from the allowed list. Do not invent categories.
2. Respond with ONLY a JSON object in this exact shape:

{
  "category": "<category name from the list>",
  "confidence": <0.0-1.0>,
  "reasoning": "<one sentence>",
  "alternatives": ["<up to %d other plausible categories from the list>"]
}`,
		description,
		categoryList.String(),
		model.MaxAlternativeCategories)
}

// cacheKey normalizes a description for cache lookup.
func cacheKey(description string) string {
	return strings.ToLower(strings.TrimSpace(description))
}

// Close stops background goroutines and cleans up resources.
func (c *Classifier) Close() error {
	if c.cache != nil {
		c.cache.Close()
	}
	return nil
}

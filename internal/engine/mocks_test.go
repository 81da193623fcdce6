package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/booksflow/booksflow/internal/model"
)

var errProviderDown = errors.New("provider unavailable")

// mockOCR returns canned extractions keyed by payload content.
type mockOCR struct {
	mu      sync.Mutex
	results map[string]*model.ExtractedDocument
	errs    map[string]error
	calls   int
}

func newMockOCR() *mockOCR {
	return &mockOCR{
		results: make(map[string]*model.ExtractedDocument),
		errs:    make(map[string]error),
	}
}

func (m *mockOCR) Extract(_ context.Context, payload []byte, _ string) (*model.ExtractedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	key := string(payload)
	if err, ok := m.errs[key]; ok {
		return nil, err
	}
	if doc, ok := m.results[key]; ok {
		copied := *doc
		return &copied, nil
	}
	return &model.ExtractedDocument{Confidence: 0.5, Currency: "USD"}, nil
}

// mockCategorizer suggests a category derived from the description, failing
// for descriptions registered as broken.
type mockCategorizer struct {
	mu     sync.Mutex
	errs   map[string]error
	calls  int
	paused chan struct{}
}

func newMockCategorizer() *mockCategorizer {
	return &mockCategorizer{errs: make(map[string]error)}
}

func (m *mockCategorizer) Suggest(_ context.Context, description string, categories []model.Category) (model.CategorySuggestion, error) {
	m.mu.Lock()
	pause := m.paused
	m.calls++
	err := m.errs[description]
	m.mu.Unlock()

	if pause != nil {
		<-pause
	}
	if err != nil {
		return model.CategorySuggestion{}, err
	}

	category := model.FallbackCategory
	if len(categories) > 0 {
		category = categories[0].Name
		for _, c := range categories {
			if strings.Contains(strings.ToLower(description), strings.ToLower(c.Name)) {
				category = c.Name
				break
			}
		}
	}
	return model.CategorySuggestion{Category: category, Confidence: 0.9}, nil
}

func (m *mockCategorizer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

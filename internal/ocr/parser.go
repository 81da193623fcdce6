package ocr

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/model"
)

// extractionPayload is the JSON shape the vision API must return. Pointer
// fields distinguish absent from zero so validation can tell the difference.
type extractionPayload struct {
	Vendor           string   `json:"vendor"`
	Amount           *float64 `json:"amount"`
	Date             string   `json:"date"`
	Currency         string   `json:"currency"`
	CategoryHint     string   `json:"category_hint"`
	Confidence       *float64 `json:"confidence"`
	VendorConfidence *float64 `json:"vendor_confidence"`
	AmountConfidence *float64 `json:"amount_confidence"`
}

// parseExtraction validates and decodes the provider response. Every field
// the schema requires must be present with the right type and range; a
// response that fails any check surfaces as a malformed-response error rather
// than a partially populated document.
func parseExtraction(raw []byte) (*model.ExtractedDocument, error) {
	var payload extractionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", common.ErrMalformedResponse, err)
	}

	if payload.Confidence == nil {
		return nil, fmt.Errorf("%w: missing confidence", common.ErrMalformedResponse)
	}
	if err := checkConfidence("confidence", *payload.Confidence); err != nil {
		return nil, err
	}

	doc := &model.ExtractedDocument{
		Vendor:       payload.Vendor,
		Currency:     payload.Currency,
		CategoryHint: payload.CategoryHint,
		Confidence:   *payload.Confidence,
		RawPayload:   json.RawMessage(raw),
	}

	if payload.Amount != nil {
		if payload.Currency == "" {
			return nil, fmt.Errorf("%w: amount present without currency", common.ErrMalformedResponse)
		}
		amount := *payload.Amount
		doc.Amount = &amount
	}

	if payload.Date != "" {
		parsed, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date %q: %v", common.ErrMalformedResponse, payload.Date, err)
		}
		doc.Date = &parsed
	}

	if payload.VendorConfidence != nil {
		if err := checkConfidence("vendor_confidence", *payload.VendorConfidence); err != nil {
			return nil, err
		}
		doc.VendorConfidence = *payload.VendorConfidence
	}

	if payload.AmountConfidence != nil {
		if err := checkConfidence("amount_confidence", *payload.AmountConfidence); err != nil {
			return nil, err
		}
		doc.AmountConfidence = *payload.AmountConfidence
	}

	return doc, nil
}

func checkConfidence(field string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %s %v out of range", common.ErrMalformedResponse, field, v)
	}
	return nil
}

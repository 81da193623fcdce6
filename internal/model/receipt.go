// Package model defines the core domain models used throughout the application.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Receipt represents an uploaded receipt document.
type Receipt struct {
	UploadedAt    time.Time
	Extracted     *ExtractedDocument
	LinkedEntryID string // ledger entry this receipt is linked to, empty if unlinked
	FileName      string
	ContentType   string
	ID            uuid.UUID
}

// ExtractedDocument holds the structured data produced by optical extraction
// from a receipt. It is created once per upload and never mutated afterwards.
type ExtractedDocument struct {
	Date             *time.Time
	Amount           *float64
	Vendor           string
	Currency         string
	CategoryHint     string
	RawPayload       json.RawMessage
	Confidence       float64 // overall extraction confidence, 0..1
	VendorConfidence float64
	AmountConfidence float64
	ProcessingTime   time.Duration
}

// HasVendor reports whether extraction produced a vendor name.
func (d *ExtractedDocument) HasVendor() bool {
	return d != nil && d.Vendor != ""
}

// HasAmount reports whether extraction produced an amount.
func (d *ExtractedDocument) HasAmount() bool {
	return d != nil && d.Amount != nil
}

// HasDate reports whether extraction produced a date.
func (d *ExtractedDocument) HasDate() bool {
	return d != nil && d.Date != nil
}

package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ContentID returns the content-addressed identity of a receipt: the SHA-256
// digest of the raw OCR text, hex-encoded. Identical text yields an identical
// identity regardless of upload time or source file name. The identity is
// computed once at the start of processing and never mutated.
func ContentID(rawText string) string {
	sum := sha256.Sum256([]byte(rawText))
	return hex.EncodeToString(sum[:])
}

// Receipt is the reconciled record produced from a single document.
//
// All monetary amounts are stored as int64 cents to avoid float rounding
// issues. NetAmount is always derived as TotalAmount - VATAmount and is
// never taken from upstream extraction.
type Receipt struct {
	// ID is the SHA-256 content hash of the raw OCR text.
	ID string

	// Direction says whether this document is a purchase (Vorsteuer) or a
	// sale (Umsatzsteuer). Supplied by the caller, never inferred.
	Direction Direction

	// Counterparty is the resolved vendor (purchase) or client (sale).
	// CounterpartyID is assigned by the persistence layer.
	CounterpartyID string
	Counterparty   *Counterparty

	Number string     // invoice/receipt reference number
	Date   *time.Time // receipt date, nil when not extracted

	// Amounts in cents
	TotalAmount   *int64   // gross total
	VATAmount     *int64   // absolute VAT
	NetAmount     *int64   // always TotalAmount - VATAmount, or nil
	VATPercentage *float64 // VAT rate, e.g. 19.0

	Category Category

	Items     []LineItem
	VATSplits []VATSplit

	// RawText is the OCR text the identity was computed from. Persisted
	// separately from the receipt row for duplicate detection and re-display.
	RawText string

	CreatedAt time.Time
}

// LineItem is a single position on a receipt. Lifetime-bound to its parent
// receipt. The LLM's per-line arithmetic is advisory: a quantity x unit price
// that does not match the line total is logged, not rejected.
type LineItem struct {
	Position    int
	Description string
	Quantity    *float64
	UnitPrice   *int64 // cents
	TotalPrice  *int64 // cents
	VATRate     *float64
	VATAmount   *int64 // cents
	Category    Category
}

// VATSplit is a (rate, base, VAT) triple used when one document carries
// multiple VAT rates. Owned exclusively by its receipt. The split VAT
// amounts must sum to the document VAT amount within rounding tolerance.
type VATSplit struct {
	Position   int
	Rate       float64
	BaseAmount *int64 // net base in cents
	VATAmount  *int64 // cents
}

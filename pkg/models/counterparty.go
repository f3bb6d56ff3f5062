package models

import (
	"strings"
	"time"
	"unicode"
)

// Address is the structured postal address of a counterparty.
type Address struct {
	Street       string
	StreetNumber string
	Postcode     string
	City         string
	Country      string
}

// Counterparty is the vendor (purchase) or client (sale) on a receipt.
//
// Unlike receipts, a counterparty's identity is assigned by the persistence
// layer, not content-derived: the same vendor appears on many documents with
// noisy name spellings. Counterparties are shared across receipts and are
// never duplicated on a dedup match.
type Counterparty struct {
	ID        string // uuid, assigned on insert
	Name      string
	VATID     string // EU VAT identifier, e.g. DE123456789
	TaxNumber string // German Steuernummer, e.g. 123/456/78901
	Address   Address

	// Verified is set only by explicit user action, never by extraction.
	Verified bool

	CreatedAt time.Time
}

// NormalizeName reduces a display name to its deduplication form:
// lower-cased, punctuation stripped, whitespace collapsed. Names are noisy
// (legal-form suffixes, OCR artifacts), so this is only the fallback match
// key after the VAT identifier.
func NormalizeName(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

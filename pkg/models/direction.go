package models

import "fmt"

// Direction distinguishes the two VAT roles a receipt can play in German
// VAT reporting.
type Direction string

const (
	// DirectionPurchase: a document you paid. Its VAT is Vorsteuer
	// (input tax) that you reclaim from the Finanzamt.
	DirectionPurchase Direction = "purchase"

	// DirectionSale: a document you issued to a client. Its VAT is
	// Umsatzsteuer (output tax) that you remit to the Finanzamt.
	DirectionSale Direction = "sale"
)

// ParseDirection converts a string into a Direction. Unlike category
// normalization there is no fallback: the direction is caller intent,
// not extracted data, so an unknown value is an error.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionPurchase, DirectionSale:
		return Direction(s), nil
	}
	return "", fmt.Errorf("invalid receipt direction %q: must be %q or %q",
		s, DirectionPurchase, DirectionSale)
}

// IsPurchase reports whether the receipt contributes to Vorsteuer.
func (d Direction) IsPurchase() bool { return d == DirectionPurchase }

func (d Direction) String() string { return string(d) }

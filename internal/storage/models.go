// Package storage persists receipts in a relational SQLite schema and
// answers the aggregation queries UStVA reporting needs.
//
// Four logically distinct concerns — receipts, line items, raw content and
// counterparties — live in separate tables joined by foreign keys, so
// counterparty deduplication and content-addressing can evolve
// independently of the receipt schema.
package storage

import (
	"time"

	"finanzamt/pkg/models"
)

// counterpartyRow is the counterparties table. NameNormalized is the
// precomputed dedup key for the name-based fallback match.
type counterpartyRow struct {
	ID             string `gorm:"primaryKey"`
	Name           string
	NameNormalized string `gorm:"index"`
	VATID          string `gorm:"column:vat_id;index"`
	TaxNumber      string
	Street         string
	StreetNumber   string
	Postcode       string
	City           string
	Country        string
	Verified       bool `gorm:"not null;default:false"`
	CreatedAt      time.Time
}

func (counterpartyRow) TableName() string { return "counterparties" }

// receiptRow is the receipts table. The primary key is the SHA-256 content
// hash of the raw OCR text, which makes duplicate detection a key lookup.
type receiptRow struct {
	ID             string  `gorm:"primaryKey"`
	CounterpartyID *string `gorm:"index"`
	Direction      string  `gorm:"index;not null;default:'purchase'"`
	Number         string
	Date           *time.Time `gorm:"index"`
	TotalAmount    *int64     // cents
	VATAmount      *int64     `gorm:"column:vat_amount"` // cents
	NetAmount      *int64     // cents
	VATPercentage  *float64   `gorm:"column:vat_percentage"`
	Category       string     `gorm:"index"`
	CreatedAt      time.Time
}

func (receiptRow) TableName() string { return "receipts" }

// itemRow is the receipt_items table. Rows are lifetime-bound to their
// receipt and replaced wholesale on update.
type itemRow struct {
	ID          string `gorm:"primaryKey"`
	ReceiptID   string `gorm:"index;not null"`
	Position    int
	Description string
	Quantity    *float64
	UnitPrice   *int64 // cents
	TotalPrice  *int64 // cents
	VATRate     *float64 `gorm:"column:vat_rate"`
	VATAmount   *int64   `gorm:"column:vat_amount"` // cents
	Category    string
}

func (itemRow) TableName() string { return "receipt_items" }

// splitRow is the receipt_vat_splits table, one row per VAT rate on
// mixed-rate documents.
type splitRow struct {
	ID         string `gorm:"primaryKey"`
	ReceiptID  string `gorm:"index;not null"`
	Position   int
	Rate       float64
	BaseAmount *int64 // cents
	VATAmount  *int64 `gorm:"column:vat_amount"` // cents
}

func (splitRow) TableName() string { return "receipt_vat_splits" }

// contentRow is the receipt_content table. Raw OCR text can be large, so it
// is kept out of the receipts table and joined only when needed.
type contentRow struct {
	ReceiptID string `gorm:"primaryKey"`
	RawText   string
}

func (contentRow) TableName() string { return "receipt_content" }

// --- row <-> model conversions ---

func counterpartyFromModel(cp *models.Counterparty) *counterpartyRow {
	return &counterpartyRow{
		ID:             cp.ID,
		Name:           cp.Name,
		NameNormalized: models.NormalizeName(cp.Name),
		VATID:          cp.VATID,
		TaxNumber:      cp.TaxNumber,
		Street:         cp.Address.Street,
		StreetNumber:   cp.Address.StreetNumber,
		Postcode:       cp.Address.Postcode,
		City:           cp.Address.City,
		Country:        cp.Address.Country,
		Verified:       cp.Verified,
		CreatedAt:      cp.CreatedAt,
	}
}

func (r *counterpartyRow) toModel() *models.Counterparty {
	return &models.Counterparty{
		ID:        r.ID,
		Name:      r.Name,
		VATID:     r.VATID,
		TaxNumber: r.TaxNumber,
		Address: models.Address{
			Street:       r.Street,
			StreetNumber: r.StreetNumber,
			Postcode:     r.Postcode,
			City:         r.City,
			Country:      r.Country,
		},
		Verified:  r.Verified,
		CreatedAt: r.CreatedAt,
	}
}

func (r *receiptRow) toModel() *models.Receipt {
	receipt := &models.Receipt{
		ID:            r.ID,
		Direction:     models.Direction(r.Direction),
		Number:        r.Number,
		Date:          r.Date,
		TotalAmount:   r.TotalAmount,
		VATAmount:     r.VATAmount,
		NetAmount:     r.NetAmount,
		VATPercentage: r.VATPercentage,
		Category:      models.NormalizeCategory(r.Category),
		CreatedAt:     r.CreatedAt,
	}
	if r.CounterpartyID != nil {
		receipt.CounterpartyID = *r.CounterpartyID
	}
	return receipt
}

func (r *itemRow) toModel() models.LineItem {
	return models.LineItem{
		Position:    r.Position,
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		TotalPrice:  r.TotalPrice,
		VATRate:     r.VATRate,
		VATAmount:   r.VATAmount,
		Category:    models.NormalizeCategory(r.Category),
	}
}

func (r *splitRow) toModel() models.VATSplit {
	return models.VATSplit{
		Position:   r.Position,
		Rate:       r.Rate,
		BaseAmount: r.BaseAmount,
		VATAmount:  r.VATAmount,
	}
}

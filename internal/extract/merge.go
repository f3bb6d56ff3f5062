package extract

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"finanzamt/internal/logger"
	"finanzamt/pkg/models"
)

// lineItemToleranceCents is the minimum slack allowed between quantity x
// unit price and the stated line total before a warning is recorded.
const lineItemToleranceCents = 2

// Merger assembles one receipt from the four partial stage bundles and
// enforces the business invariants on the result.
type Merger struct {
	log zerolog.Logger
}

// NewMerger creates a merge/validation engine.
func NewMerger() *Merger {
	return &Merger{log: logger.WithComponent("merge")}
}

// Merge combines a bundle into a single candidate receipt.
//
// The merge is additive, not conflict-resolving: each stage owns a disjoint
// set of fields, so assembling the record never overwrites one stage's
// contribution with another's. Soft problems (split sums, line arithmetic)
// come back as warnings; hard invariant violations return an
// *InvalidReceiptError and nothing is persisted.
func (m *Merger) Merge(bundle *Bundle, direction models.Direction, rawText string) (*models.Receipt, []string, error) {
	receipt := &models.Receipt{
		ID:        models.ContentID(rawText),
		Direction: direction,
		Category:  models.CategoryOther,
		RawText:   rawText,
	}
	var warnings []string

	// Metadata: number, date, category. Category was already normalized at
	// coercion; absence of the whole stage leaves the "other" default.
	if md := bundle.Metadata; md != nil {
		receipt.Number = md.Number
		receipt.Category = md.Category

		date, ok := parseDate(md.DateRaw)
		if !ok {
			return nil, nil, NewInvalidReceiptError("receipt_date", md.DateRaw, "unparseable date")
		}
		receipt.Date = date

		// Post-dated invoices are legitimate but worth flagging.
		if date != nil && date.After(time.Now()) {
			warnings = append(warnings, fmt.Sprintf("receipt date %s is in the future", date.Format("2006-01-02")))
		}
	}

	// Counterparty: identity resolution against storage happens later; the
	// merge only decides whether the stage produced anything usable.
	if cp := bundle.Counterparty; cp != nil && !counterpartyEmpty(cp) {
		receipt.Counterparty = &models.Counterparty{
			Name:      cp.Name,
			VATID:     cp.VATID,
			TaxNumber: cp.TaxNumber,
			Address:   cp.Address,
		}
	}

	// Amounts: hard invariants first, derivations second.
	if am := bundle.Amounts; am != nil {
		if am.Total != nil && *am.Total < 0 {
			return nil, nil, NewInvalidReceiptError("total_amount", float64(*am.Total)/100, "total amount must not be negative")
		}
		if am.VATPercentage != nil && (*am.VATPercentage < 0 || *am.VATPercentage > 100) {
			return nil, nil, NewInvalidReceiptError("vat_percentage", *am.VATPercentage, "VAT percentage must be within [0, 100]")
		}

		receipt.TotalAmount = am.Total
		receipt.VATPercentage = am.VATPercentage
		receipt.VATAmount = am.VATAmount
		receipt.VATSplits = am.Splits
	}

	m.deriveAmounts(receipt)
	warnings = append(warnings, m.checkVATSplits(receipt)...)

	if items := bundle.Items; items != nil {
		receipt.Items = items.Items
		warnings = append(warnings, m.checkLineArithmetic(receipt.Items)...)
	}

	m.log.Debug().
		Str("receipt_id", receipt.ID).
		Str("direction", direction.String()).
		Int("items", len(receipt.Items)).
		Int("warnings", len(warnings)).
		Msg("Merged stage bundles into receipt")

	return receipt, warnings, nil
}

// deriveAmounts computes the derived monetary fields.
//
// VAT derivation assumes VAT-inclusive pricing, the German consumer-invoice
// convention: vat = total * rate / (100 + rate). Net is always recomputed
// from total - VAT and never trusted from upstream extraction. When neither
// is derivable the fields stay unset rather than guessed.
func (m *Merger) deriveAmounts(r *models.Receipt) {
	if r.VATAmount == nil && r.TotalAmount != nil && r.VATPercentage != nil {
		vat := int64(math.Round(float64(*r.TotalAmount) * *r.VATPercentage / (100 + *r.VATPercentage)))
		r.VATAmount = &vat
		m.log.Debug().
			Int64("vat_cents", vat).
			Float64("rate", *r.VATPercentage).
			Msg("Derived VAT amount from total and rate")
	}

	if r.TotalAmount != nil && r.VATAmount != nil {
		net := *r.TotalAmount - *r.VATAmount
		r.NetAmount = &net
	}
}

// checkVATSplits verifies that split VAT amounts sum to the document VAT
// within an absolute tolerance of one cent per split. Multi-rate documents
// extract with inherently lower confidence, so a mismatch is a warning,
// never a rejection.
func (m *Merger) checkVATSplits(r *models.Receipt) []string {
	if len(r.VATSplits) == 0 || r.VATAmount == nil {
		return nil
	}

	var sum int64
	for _, split := range r.VATSplits {
		if split.VATAmount == nil {
			return []string{fmt.Sprintf("VAT split for rate %.1f%% has no amount; split total not verifiable", split.Rate)}
		}
		sum += *split.VATAmount
	}

	tolerance := int64(len(r.VATSplits))
	if diff := abs64(sum - *r.VATAmount); diff > tolerance {
		warning := fmt.Sprintf("VAT splits sum to %.2f but document VAT is %.2f (difference %.2f)",
			float64(sum)/100, float64(*r.VATAmount)/100, float64(diff)/100)
		m.log.Warn().
			Str("receipt_id", r.ID).
			Int64("split_sum", sum).
			Int64("vat_amount", *r.VATAmount).
			Msg("VAT split sum mismatch")
		return []string{warning}
	}
	return nil
}

// checkLineArithmetic verifies quantity x unit price against the stated
// line total, allowing a proportional tolerance. The model's arithmetic is
// advisory, not authoritative: mismatches are logged, never rejected.
func (m *Merger) checkLineArithmetic(items []models.LineItem) []string {
	var warnings []string
	for _, item := range items {
		if item.Quantity == nil || item.UnitPrice == nil || item.TotalPrice == nil {
			continue
		}
		expected := int64(math.Round(*item.Quantity * float64(*item.UnitPrice)))
		tolerance := int64(math.Round(math.Abs(float64(*item.TotalPrice)) * 0.01))
		if tolerance < lineItemToleranceCents {
			tolerance = lineItemToleranceCents
		}
		if diff := abs64(expected - *item.TotalPrice); diff > tolerance {
			warning := fmt.Sprintf("line %d (%s): quantity x unit price = %.2f but line total is %.2f",
				item.Position, item.Description, float64(expected)/100, float64(*item.TotalPrice)/100)
			warnings = append(warnings, warning)
			m.log.Warn().
				Int("position", item.Position).
				Int64("expected", expected).
				Int64("stated", *item.TotalPrice).
				Msg("Line item arithmetic mismatch")
		}
	}
	return warnings
}

func counterpartyEmpty(cp *CounterpartyResult) bool {
	return cp.Name == "" && cp.VATID == "" && cp.TaxNumber == "" &&
		cp.Address == (models.Address{})
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

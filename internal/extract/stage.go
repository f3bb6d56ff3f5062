// Package extract implements the multi-stage extraction protocol: four
// narrow, independent model requests per document, orchestrated by an
// explicit state machine and merged into one receipt.
package extract

import (
	"time"

	"finanzamt/pkg/models"
)

// Stage identifies one extraction request within the protocol. Each stage
// owns a disjoint set of receipt fields, so merging stage results is
// additive and never conflict-resolving.
type Stage string

const (
	StageMetadata     Stage = "metadata"     // receipt number, date, category
	StageCounterparty Stage = "counterparty" // vendor/client identity + address
	StageAmounts      Stage = "amounts"      // total, VAT rate, VAT amount, splits
	StageLineItems    Stage = "line_items"   // individual positions
)

// StageOrder is the fixed execution sequence. Stages run one at a time to
// keep each prompt small for local models; no stage's output feeds another
// stage's prompt.
var StageOrder = []Stage{StageMetadata, StageCounterparty, StageAmounts, StageLineItems}

// ExpectedKeys returns the JSON keys a stage's response must be probed for.
// Used both for response validation and for the per-key regex fallback when
// the model returns broken JSON.
func (s Stage) ExpectedKeys() []string {
	switch s {
	case StageMetadata:
		return []string{"receipt_number", "receipt_date", "category"}
	case StageCounterparty:
		return []string{"name", "vat_id", "tax_number", "street",
			"street_number", "postcode", "city", "country"}
	case StageAmounts:
		return []string{"total_amount", "vat_percentage", "vat_amount", "vat_splits"}
	case StageLineItems:
		return []string{"items"}
	}
	return nil
}

func (s Stage) String() string { return string(s) }

// MetadataResult is the coerced output of the metadata stage.
// DateRaw keeps the model's original date string: parsing happens during
// merge, where an unparseable non-empty date is a hard validation failure.
type MetadataResult struct {
	Number   string
	DateRaw  string
	Category models.Category
}

// CounterpartyResult is the coerced output of the counterparty stage.
type CounterpartyResult struct {
	Name      string
	VATID     string
	TaxNumber string
	Address   models.Address
}

// AmountsResult is the coerced output of the amounts stage. All amounts in
// cents; absent fields are nil, never zero.
type AmountsResult struct {
	Total         *int64
	VATPercentage *float64
	VATAmount     *int64
	Splits        []models.VATSplit
}

// ItemsResult is the coerced output of the line-items stage.
type ItemsResult struct {
	Items []models.LineItem
}

// Bundle is the terminal output of the orchestration controller: four
// partial results, any of which may be nil when its stage exhausted all
// retries. A partially-filled receipt is more useful than none, so a nil
// partial never fails the document by itself.
type Bundle struct {
	Metadata     *MetadataResult
	Counterparty *CounterpartyResult
	Amounts      *AmountsResult
	Items        *ItemsResult

	// Failures records why each absent stage produced nothing.
	Failures map[Stage]error

	// Elapsed is the wall-clock time the controller spent across all stages.
	Elapsed time.Duration
}

// FailedStages lists the stages that produced no partial result, in
// execution order.
func (b *Bundle) FailedStages() []Stage {
	var failed []Stage
	for _, s := range StageOrder {
		if _, ok := b.Failures[s]; ok {
			failed = append(failed, s)
		}
	}
	return failed
}

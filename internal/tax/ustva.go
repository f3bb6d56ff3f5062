// Package tax computes the Umsatzsteuer-Voranmeldung (UStVA), the German
// periodic VAT pre-return.
//
// Purchase receipts carry Vorsteuer (input tax reclaimed from the
// Finanzamt); sale receipts carry Umsatzsteuer (output tax remitted to it).
// The net liability is output minus input: positive means a payment is due,
// negative means a refund (Erstattung).
package tax

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"finanzamt/internal/storage"
	"finanzamt/pkg/models"
)

// Line aggregates one VAT rate, split by ledger side. Amounts are cents.
type Line struct {
	Rate          float64 `json:"vat_rate"`
	PurchaseNet   int64   `json:"purchase_net"`
	PurchaseVAT   int64   `json:"purchase_vat"`
	PurchaseCount int     `json:"purchase_count"`
	SaleNet       int64   `json:"sale_net"`
	SaleVAT       int64   `json:"sale_vat"`
	SaleCount     int     `json:"sale_count"`
}

// NetLiability is output VAT minus input VAT for this rate.
func (l *Line) NetLiability() int64 { return l.SaleVAT - l.PurchaseVAT }

// Report is the UStVA summary for one reporting period. Lines are keyed by
// rate and sorted ascending.
type Report struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Lines       []Line    `json:"lines"`

	// SkippedCount is the number of in-period receipts that carried no
	// positive VAT amount and therefore contribute nothing to the return.
	SkippedCount int `json:"skipped_count"`
}

// NewReport assembles a report from per-direction aggregation rows, merging
// the purchase and sale buckets of each rate into one line.
func NewReport(start, end time.Time, rows []storage.VATAggregateRow, skipped int) *Report {
	byRate := make(map[float64]*Line)
	for _, row := range rows {
		line, ok := byRate[row.Rate]
		if !ok {
			line = &Line{Rate: row.Rate}
			byRate[row.Rate] = line
		}
		if row.Direction.IsPurchase() {
			line.PurchaseNet += row.NetTotal
			line.PurchaseVAT += row.VATTotal
			line.PurchaseCount += row.Count
		} else {
			line.SaleNet += row.NetTotal
			line.SaleVAT += row.VATTotal
			line.SaleCount += row.Count
		}
	}

	report := &Report{
		PeriodStart:  start,
		PeriodEnd:    end,
		SkippedCount: skipped,
	}
	for _, line := range byRate {
		report.Lines = append(report.Lines, *line)
	}
	sort.Slice(report.Lines, func(i, j int) bool {
		return report.Lines[i].Rate < report.Lines[j].Rate
	})
	return report
}

// Generate computes a report directly from receipts, applying the same skip
// rules as the storage aggregation: no date, outside the period, or no
// positive VAT amount.
func Generate(receipts []*models.Receipt, start, end time.Time) *Report {
	var rows []storage.VATAggregateRow
	skipped := 0

	for _, r := range receipts {
		if r.Date == nil || r.Date.Before(start) || r.Date.After(end) {
			skipped++
			continue
		}
		if r.VATAmount == nil || *r.VATAmount <= 0 {
			skipped++
			continue
		}

		row := storage.VATAggregateRow{
			Direction: r.Direction,
			VATTotal:  *r.VATAmount,
			Count:     1,
		}
		if r.VATPercentage != nil {
			row.Rate = *r.VATPercentage
		}
		if r.NetAmount != nil {
			row.NetTotal = *r.NetAmount
		}
		rows = append(rows, row)
	}

	return NewReport(start, end, rows, skipped)
}

// TotalInputVAT is the Vorsteuer total across all rates.
func (r *Report) TotalInputVAT() int64 {
	var sum int64
	for i := range r.Lines {
		sum += r.Lines[i].PurchaseVAT
	}
	return sum
}

// TotalOutputVAT is the Umsatzsteuer total across all rates.
func (r *Report) TotalOutputVAT() int64 {
	var sum int64
	for i := range r.Lines {
		sum += r.Lines[i].SaleVAT
	}
	return sum
}

// NetLiability is output minus input VAT. Positive means payment due.
func (r *Report) NetLiability() int64 { return r.TotalOutputVAT() - r.TotalInputVAT() }

// TotalReceipts is the number of receipts that entered the aggregation.
func (r *Report) TotalReceipts() int {
	n := 0
	for i := range r.Lines {
		n += r.Lines[i].PurchaseCount + r.Lines[i].SaleCount
	}
	return n
}

// ToJSON renders the report as indented JSON for machine consumers.
func (r *Report) ToJSON() (string, error) {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("tax.Report.ToJSON: %w", err)
	}
	return string(raw), nil
}

const summaryWidth = 52

// Summary renders the report as a human-readable German-labelled block.
func (r *Report) Summary() string {
	div := strings.Repeat("─", summaryWidth)
	hdiv := strings.Repeat("═", summaryWidth)
	edge := strings.Repeat("=", summaryWidth)

	var b strings.Builder
	write := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	write("%s", edge)
	write("  UStVA — %s bis %s", r.PeriodStart.Format("2006-01-02"), r.PeriodEnd.Format("2006-01-02"))
	write("%s", edge)
	write("  Belege gesamt       : %d", r.TotalReceipts())
	write("  Übersprungen        : %d", r.SkippedCount)

	if len(r.Lines) > 0 {
		write("%s", div)
		for i := range r.Lines {
			ln := &r.Lines[i]
			write("  USt-Satz %s %%", formatRate(ln.Rate))
			write("    Einkauf (Vorsteuer)")
			write("      Nettobetrag    : %10.2f EUR  (%d Belege)", euros(ln.PurchaseNet), ln.PurchaseCount)
			write("      Vorsteuer      : %10.2f EUR", euros(ln.PurchaseVAT))
			write("    Verkauf (Umsatzsteuer)")
			write("      Nettobetrag    : %10.2f EUR  (%d Belege)", euros(ln.SaleNet), ln.SaleCount)
			write("      Umsatzsteuer   : %10.2f EUR", euros(ln.SaleVAT))
			write("      Saldo          : %+10.2f EUR", euros(ln.NetLiability()))
		}
	}

	write("%s", hdiv)
	write("  Gesamt Vorsteuer    : %10.2f EUR", euros(r.TotalInputVAT()))
	write("  Gesamt Umsatzsteuer : %10.2f EUR", euros(r.TotalOutputVAT()))
	write("%s", hdiv)

	liability := r.NetLiability()
	switch {
	case liability > 0:
		write("  Zahllast / Erstatt. : %10.2f EUR  ← you owe the Finanzamt", euros(liability))
	case liability < 0:
		write("  Zahllast / Erstatt. : %10.2f EUR  ← Finanzamt owes you (Erstattung)", euros(-liability))
	default:
		write("  Zahllast / Erstatt. :       0.00 EUR  (break-even)")
	}
	b.WriteString(edge)

	return b.String()
}

func euros(cents int64) float64 { return float64(cents) / 100 }

// formatRate drops trailing zeros so 19.0 prints as "19" and 7.5 as "7.5".
func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

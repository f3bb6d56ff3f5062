package extract

import (
	"math"
	"strconv"
	"strings"
	"time"

	"finanzamt/pkg/models"
)

// Null-safe coercions from parsed LLM JSON to typed stage results. Local
// models return inconsistent types (numbers as strings, labels as values),
// so every accessor prefers returning nothing over returning garbage.

// cleanString extracts a usable string value. Field labels leaked from the
// document (trailing ":") and sub-2-character fragments are rejected.
func cleanString(v any) string {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ":") || len(s) < 2 {
		return ""
	}
	return s
}

// parseFloat coerces a JSON number or numeric string (German comma decimals
// accepted) to a float.
func parseFloat(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f := t
		return &f
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

// parseCents coerces a monetary value to int64 cents. JSON numbers are
// euro amounts; strings are cleaned of currency markers and parsed in both
// German (1.234,56) and English (1,234.56) formats.
func parseCents(v any) *int64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		c := int64(math.Round(t * 100))
		return &c
	case string:
		return parseAmountString(t)
	}
	return nil
}

// parseAmountString parses an amount string handling both German and
// English number formats.
func parseAmountString(amountStr string) *int64 {
	cleaned := strings.TrimSpace(amountStr)
	for _, marker := range []string{" ", "€", "$", "EUR", "USD"} {
		cleaned = strings.ReplaceAll(cleaned, marker, "")
	}
	if cleaned == "" {
		return nil
	}

	if strings.Contains(cleaned, ",") {
		if strings.Contains(cleaned, ".") {
			// German format: dot = thousands, comma = decimal
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			parts := strings.Split(cleaned, ",")
			if len(parts) == 2 && len(parts[1]) <= 2 {
				// Lone comma with <=2 trailing digits is a decimal separator
				cleaned = strings.ReplaceAll(cleaned, ",", ".")
			} else {
				// English thousands separators
				cleaned = strings.ReplaceAll(cleaned, ",", "")
			}
		}
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	c := int64(math.Round(f * 100))
	return &c
}

// dateLayouts are tried in order when parsing receipt dates. ISO first
// because the prompts request YYYY-MM-DD; European formats follow because
// models echo the document's own notation often enough.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"2006/01/02",
}

// parseDate parses a receipt date string. Returns nil when s is empty;
// returns ok=false when s is non-empty but matches no known layout.
func parseDate(s string) (t *time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return &parsed, true
		}
	}
	return nil, false
}

// coerceMetadata validates the raw metadata stage response.
func coerceMetadata(raw map[string]any) *MetadataResult {
	if raw == nil {
		return nil
	}
	result := &MetadataResult{
		Category: models.CategoryOther,
	}
	result.Number = cleanString(raw["receipt_number"])
	if s, ok := raw["receipt_date"].(string); ok {
		result.DateRaw = strings.TrimSpace(s)
	}
	if s, ok := raw["category"].(string); ok {
		result.Category = models.NormalizeCategory(s)
	}
	return result
}

// coerceCounterparty validates the raw counterparty stage response.
func coerceCounterparty(raw map[string]any) *CounterpartyResult {
	if raw == nil {
		return nil
	}
	return &CounterpartyResult{
		Name:      cleanString(raw["name"]),
		VATID:     strings.ToUpper(strings.ReplaceAll(cleanString(raw["vat_id"]), " ", "")),
		TaxNumber: cleanString(raw["tax_number"]),
		Address: models.Address{
			Street:       cleanString(raw["street"]),
			StreetNumber: cleanString(raw["street_number"]),
			Postcode:     cleanString(raw["postcode"]),
			City:         cleanString(raw["city"]),
			Country:      cleanString(raw["country"]),
		},
	}
}

// coerceAmounts converts the raw amounts stage response to cents. Coercion
// is type-level only: range invariants (negative totals, rates outside
// [0,100]) are enforced by Merge, where they become hard failures instead
// of silently dropped values. VAT amounts that exceed the known total are
// discarded as extraction noise — the model's arithmetic is advisory.
func coerceAmounts(raw map[string]any) *AmountsResult {
	if raw == nil {
		return nil
	}
	result := &AmountsResult{
		Total:         parseCents(raw["total_amount"]),
		VATPercentage: parseFloat(raw["vat_percentage"]),
	}
	if vat := parseCents(raw["vat_amount"]); vat != nil && *vat >= 0 {
		if result.Total == nil || *vat < *result.Total {
			result.VATAmount = vat
		}
	}

	if splits, ok := raw["vat_splits"].([]any); ok {
		for i, entry := range splits {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			rate := parseFloat(m["vat_rate"])
			if rate == nil || *rate < 0 || *rate > 100 {
				continue
			}
			result.Splits = append(result.Splits, models.VATSplit{
				Position:   i + 1,
				Rate:       *rate,
				BaseAmount: parseCents(m["base_amount"]),
				VATAmount:  parseCents(m["vat_amount"]),
			})
		}
	}

	return result
}

// coerceItems validates the raw line-items stage response. Rows with
// neither description nor total are dropped as noise.
func coerceItems(raw map[string]any) *ItemsResult {
	if raw == nil {
		return nil
	}
	result := &ItemsResult{}

	entries, ok := raw["items"].([]any)
	if !ok {
		return result
	}
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := models.LineItem{
			Description: cleanString(m["description"]),
			Quantity:    parseFloat(m["quantity"]),
			UnitPrice:   parseCents(m["unit_price"]),
			TotalPrice:  parseCents(m["total_price"]),
			VATAmount:   parseCents(m["vat_amount"]),
			Category:    models.CategoryOther,
		}
		if rate := parseFloat(m["vat_rate"]); rate != nil && *rate >= 0 && *rate <= 100 {
			item.VATRate = rate
		}
		if s, ok := m["category"].(string); ok {
			item.Category = models.NormalizeCategory(s)
		}
		if item.Description == "" && item.TotalPrice == nil {
			continue
		}
		item.Position = len(result.Items) + 1
		result.Items = append(result.Items, item)
	}

	return result
}

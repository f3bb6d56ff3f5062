package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzamt/pkg/models"
)

func TestParseAmountString(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"119,00", 11900},
		{"1.234,56", 123456}, // German thousands
		{"1,234.56", 123456}, // English thousands
		{"119.00", 11900},
		{"119,00 €", 11900},
		{"EUR 1.000,00", 100000},
		{"42", 4200},
		{"-5,00", -500},
	}
	for _, tt := range tests {
		got := parseAmountString(tt.in)
		require.NotNil(t, got, "input %q", tt.in)
		assert.Equal(t, tt.want, *got, "input %q", tt.in)
	}

	assert.Nil(t, parseAmountString(""))
	assert.Nil(t, parseAmountString("n/a"))
	assert.Nil(t, parseAmountString("€"))
}

func TestParseCents(t *testing.T) {
	got := parseCents(float64(0.999))
	require.NotNil(t, got)
	assert.Equal(t, int64(100), *got) // rounds, never truncates

	got = parseCents("1.234,56")
	require.NotNil(t, got)
	assert.Equal(t, int64(123456), *got)

	assert.Nil(t, parseCents(nil))
	assert.Nil(t, parseCents(true))
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2026-01-15", "15.01.2026", "15/01/2026", "2026/01/15"} {
		d, ok := parseDate(in)
		require.True(t, ok, "input %q", in)
		require.NotNil(t, d, "input %q", in)
		assert.Equal(t, 2026, d.Year())
		assert.Equal(t, 15, d.Day())
	}

	// Empty is fine: the field just stays unset.
	d, ok := parseDate("")
	assert.True(t, ok)
	assert.Nil(t, d)

	// Non-empty garbage is not fine.
	_, ok = parseDate("Januar 2026")
	assert.False(t, ok)
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Acme GmbH", cleanString("  Acme GmbH "))
	assert.Equal(t, "", cleanString("Rechnungsnummer:")) // leaked field label
	assert.Equal(t, "", cleanString("x"))               // sub-2-char fragment
	assert.Equal(t, "", cleanString(nil))
	assert.Equal(t, "", cleanString(42.0))
}

func TestCoerceAmounts(t *testing.T) {
	t.Run("passes range violations through for validation", func(t *testing.T) {
		result := coerceAmounts(map[string]any{
			"total_amount":   float64(-50),
			"vat_percentage": float64(150),
		})
		require.NotNil(t, result)
		require.NotNil(t, result.Total)
		assert.Equal(t, int64(-5000), *result.Total)
		require.NotNil(t, result.VATPercentage)
		assert.Equal(t, float64(150), *result.VATPercentage)
	})

	t.Run("drops VAT exceeding total as noise", func(t *testing.T) {
		result := coerceAmounts(map[string]any{
			"total_amount": float64(100),
			"vat_amount":   float64(119),
		})
		require.NotNil(t, result)
		assert.Nil(t, result.VATAmount)
	})

	t.Run("parses splits and skips invalid rates", func(t *testing.T) {
		result := coerceAmounts(map[string]any{
			"total_amount": "126,00",
			"vat_splits": []any{
				map[string]any{"vat_rate": float64(19), "base_amount": float64(100), "vat_amount": float64(19)},
				map[string]any{"vat_rate": float64(7), "base_amount": "100,00", "vat_amount": "7,00"},
				map[string]any{"vat_rate": float64(120), "vat_amount": float64(1)},
			},
		})
		require.NotNil(t, result)
		require.Len(t, result.Splits, 2)
		assert.Equal(t, 19.0, result.Splits[0].Rate)
		assert.Equal(t, int64(700), *result.Splits[1].VATAmount)
	})

	assert.Nil(t, coerceAmounts(nil))
}

func TestCoerceItems(t *testing.T) {
	result := coerceItems(map[string]any{
		"items": []any{
			map[string]any{"description": "Consulting", "quantity": float64(2), "unit_price": float64(50), "total_price": float64(100)},
			map[string]any{"description": "", "total_price": nil}, // noise row
			map[string]any{"total_price": float64(25)},            // kept: has a total
		},
	})
	require.NotNil(t, result)
	require.Len(t, result.Items, 2)
	assert.Equal(t, 1, result.Items[0].Position)
	assert.Equal(t, "Consulting", result.Items[0].Description)
	assert.Equal(t, int64(10000), *result.Items[0].TotalPrice)
	assert.Equal(t, 2, result.Items[1].Position)
}

func TestCoerceMetadata(t *testing.T) {
	result := coerceMetadata(map[string]any{
		"receipt_number": "R-2026-001",
		"receipt_date":   "15.01.2026",
		"category":       "Bürobedarf",
	})
	require.NotNil(t, result)
	assert.Equal(t, "R-2026-001", result.Number)
	assert.Equal(t, "15.01.2026", result.DateRaw) // parsing deferred to merge
	assert.Equal(t, models.CategoryOther, result.Category)
}

func TestCoerceCounterparty(t *testing.T) {
	result := coerceCounterparty(map[string]any{
		"name":   "Acme GmbH",
		"vat_id": "de 123456789",
		"city":   "Berlin",
	})
	require.NotNil(t, result)
	assert.Equal(t, "Acme GmbH", result.Name)
	assert.Equal(t, "DE123456789", result.VATID) // uppercased, spaces stripped
	assert.Equal(t, "Berlin", result.Address.City)
}

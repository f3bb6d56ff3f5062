package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"finanzamt/pkg/models"
)

func f64(v float64) *float64 { return &v }

func TestSuggestPurchase(t *testing.T) {
	s := Suggest(&models.Receipt{
		Direction:     models.DirectionPurchase,
		Category:      models.CategoryTravel,
		VATPercentage: f64(19),
	})
	assert.Equal(t, "4670", s.Account)
	assert.Equal(t, "9", s.TaxKey)

	// Unknown category falls back to sonstige Aufwendungen.
	s = Suggest(&models.Receipt{
		Direction: models.DirectionPurchase,
		Category:  models.Category("unmapped"),
	})
	assert.Equal(t, "4900", s.Account)
	assert.Equal(t, "0", s.TaxKey)
}

func TestSuggestPurchaseReducedRate(t *testing.T) {
	s := Suggest(&models.Receipt{
		Direction:     models.DirectionPurchase,
		Category:      models.CategoryMaterial,
		VATPercentage: f64(7),
	})
	assert.Equal(t, "4930", s.Account)
	assert.Equal(t, "8", s.TaxKey)
}

func TestSuggestSale(t *testing.T) {
	s := Suggest(&models.Receipt{
		Direction:     models.DirectionSale,
		Category:      models.CategoryConsulting,
		VATPercentage: f64(19),
	})
	assert.Equal(t, "8400", s.Account)
	assert.Equal(t, "3", s.TaxKey)

	s = Suggest(&models.Receipt{
		Direction:     models.DirectionSale,
		Category:      models.CategoryProducts,
		VATPercentage: f64(7),
	})
	assert.Equal(t, "8300", s.Account)
	assert.Equal(t, "2", s.TaxKey)
}

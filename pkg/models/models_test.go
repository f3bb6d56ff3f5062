package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentID(t *testing.T) {
	t.Run("identical text yields identical identity", func(t *testing.T) {
		a := ContentID("Rechnung Nr. 2026-042\nGesamt: 119,00 EUR")
		b := ContentID("Rechnung Nr. 2026-042\nGesamt: 119,00 EUR")
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("different text yields different identity", func(t *testing.T) {
		a := ContentID("Rechnung Nr. 2026-042")
		b := ContentID("Rechnung Nr. 2026-043")
		assert.NotEqual(t, a, b)
	})
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("purchase")
	require.NoError(t, err)
	assert.Equal(t, DirectionPurchase, d)
	assert.True(t, d.IsPurchase())

	d, err = ParseDirection("sale")
	require.NoError(t, err)
	assert.Equal(t, DirectionSale, d)
	assert.False(t, d.IsPurchase())

	_, err = ParseDirection("expense")
	assert.Error(t, err)

	_, err = ParseDirection("")
	assert.Error(t, err)
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, CategoryTravel, NormalizeCategory("travel"))
	assert.Equal(t, CategorySoftware, NormalizeCategory("  Software "))

	// Unknown values fall back silently, never error.
	assert.Equal(t, CategoryOther, NormalizeCategory("Bürobedarf"))
	assert.Equal(t, CategoryOther, NormalizeCategory(""))
	assert.Equal(t, CategoryOther, NormalizeCategory("groceries"))
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryInsurance.Valid())
	assert.True(t, CategoryOther.Valid())
	assert.False(t, Category("Bürobedarf").Valid())
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, NormalizeName("ACME GmbH"), NormalizeName("acme gmbh"))
	assert.Equal(t, NormalizeName("Acme GmbH."), NormalizeName("Acme,  GmbH"))
	assert.NotEqual(t, NormalizeName("Acme GmbH"), NormalizeName("Acme AG"))
	assert.Equal(t, "", NormalizeName("  "))
}

package models

import "strings"

// Category is the closed receipt taxonomy. The same list is embedded in the
// extraction prompts, so prompt and model cannot drift apart.
type Category string

const (
	// Revenue categories (sales)
	CategoryServices   Category = "services"
	CategoryConsulting Category = "consulting"
	CategoryProducts   Category = "products"
	CategoryLicensing  Category = "licensing"

	// Expense categories (purchases)
	CategoryMaterial          Category = "material"
	CategoryEquipment         Category = "equipment"
	CategoryInternet          Category = "internet"
	CategoryTelecommunication Category = "telecommunication"
	CategorySoftware          Category = "software"
	CategoryEducation         Category = "education"
	CategoryTravel            Category = "travel"
	CategoryUtilities         Category = "utilities"
	CategoryInsurance         Category = "insurance"
	CategoryTaxes             Category = "taxes"

	// CategoryOther is the explicit fallback for anything outside the
	// taxonomy. Category is advisory metadata, not a financial figure, so
	// unknown values normalize silently instead of failing the document.
	CategoryOther Category = "other"
)

// Categories lists every valid category in prompt order.
var Categories = []Category{
	CategoryServices, CategoryConsulting, CategoryProducts, CategoryLicensing,
	CategoryMaterial, CategoryEquipment, CategoryInternet, CategoryTelecommunication,
	CategorySoftware, CategoryEducation, CategoryTravel, CategoryUtilities,
	CategoryInsurance, CategoryTaxes,
	CategoryOther,
}

var validCategories = func() map[Category]struct{} {
	m := make(map[Category]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = struct{}{}
	}
	return m
}()

// NormalizeCategory maps an arbitrary string to a valid Category.
// Unknown or empty values fall back to CategoryOther. This is an intentional,
// documented default, never an error.
func NormalizeCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validCategories[c]; ok {
		return c
	}
	return CategoryOther
}

// Valid reports whether c is a member of the taxonomy.
func (c Category) Valid() bool {
	_, ok := validCategories[c]
	return ok
}

func (c Category) String() string { return string(c) }

// CategoryList returns the taxonomy as a comma-separated string for
// embedding in extraction prompts.
func CategoryList() string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

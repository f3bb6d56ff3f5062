// Package booking suggests SKR03 accounts for stored receipts.
//
// SKR03 is the German standard chart of accounts used by DATEV. The mapping
// here is a deterministic lookup from expense category and ledger side to
// the usual account and tax key; it is a preparation aid for manual
// bookkeeping, not an authoritative booking engine.
package booking

import (
	"finanzamt/pkg/models"
)

// Suggestion is a proposed SKR03 posting for one receipt.
type Suggestion struct {
	Account     string `json:"account"`      // 4-digit SKR03 account
	AccountName string `json:"account_name"` // German account label
	TaxKey      string `json:"tax_key"`      // DATEV Steuerschlüssel
}

// purchaseAccounts maps expense categories to their usual SKR03 expense
// account. Categories without an established convention fall back to 4900
// (sonstige betriebliche Aufwendungen).
var purchaseAccounts = map[models.Category]Suggestion{
	models.CategoryServices:          {Account: "4909", AccountName: "Fremdleistungen"},
	models.CategoryConsulting:        {Account: "4957", AccountName: "Rechts- und Beratungskosten"},
	models.CategoryProducts:          {Account: "3400", AccountName: "Wareneingang 19% Vorsteuer"},
	models.CategoryLicensing:         {Account: "4964", AccountName: "Lizenzen und Konzessionen"},
	models.CategoryMaterial:          {Account: "4930", AccountName: "Bürobedarf"},
	models.CategoryEquipment:         {Account: "0490", AccountName: "Sonstige Betriebs- und Geschäftsausstattung"},
	models.CategoryInternet:          {Account: "4921", AccountName: "Telefon/Internet"},
	models.CategoryTelecommunication: {Account: "4920", AccountName: "Telefon"},
	models.CategorySoftware:          {Account: "0027", AccountName: "EDV-Software"},
	models.CategoryEducation:         {Account: "4945", AccountName: "Fortbildungskosten"},
	models.CategoryTravel:            {Account: "4670", AccountName: "Reisekosten Unternehmer"},
	models.CategoryUtilities:         {Account: "4240", AccountName: "Gas, Strom, Wasser"},
	models.CategoryInsurance:         {Account: "4360", AccountName: "Versicherungen"},
	models.CategoryTaxes:             {Account: "4320", AccountName: "Gewerbesteuer"},
	models.CategoryOther:             {Account: "4900", AccountName: "Sonstige betriebliche Aufwendungen"},
}

// saleAccount is the default revenue account for outgoing invoices
// (Erlöse 19% USt). Reduced-rate revenue posts to 8300.
const (
	saleAccountStandard     = "8400"
	saleAccountStandardName = "Erlöse 19% USt"
	saleAccountReduced      = "8300"
	saleAccountReducedName  = "Erlöse 7% USt"
)

// Suggest returns the usual SKR03 account and tax key for a receipt.
// Purchases map by category; sales map by VAT rate. Tax keys follow the
// DATEV convention: 9 = 19% Vorsteuer, 8 = 7% Vorsteuer, 3 = 19%
// Umsatzsteuer, 2 = 7% Umsatzsteuer, 0 = steuerfrei.
func Suggest(r *models.Receipt) Suggestion {
	rate := 0.0
	if r.VATPercentage != nil {
		rate = *r.VATPercentage
	}

	if r.Direction.IsPurchase() {
		s, ok := purchaseAccounts[r.Category]
		if !ok {
			s = purchaseAccounts[models.CategoryOther]
		}
		s.TaxKey = purchaseTaxKey(rate)
		return s
	}

	s := Suggestion{Account: saleAccountStandard, AccountName: saleAccountStandardName}
	if rate > 0 && rate < 19 {
		s.Account = saleAccountReduced
		s.AccountName = saleAccountReducedName
	}
	s.TaxKey = saleTaxKey(rate)
	return s
}

func purchaseTaxKey(rate float64) string {
	switch {
	case rate >= 19:
		return "9"
	case rate > 0:
		return "8"
	default:
		return "0"
	}
}

func saleTaxKey(rate float64) string {
	switch {
	case rate >= 19:
		return "3"
	case rate > 0:
		return "2"
	default:
		return "0"
	}
}

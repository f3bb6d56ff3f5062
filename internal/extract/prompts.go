package extract

import (
	"fmt"

	"finanzamt/pkg/models"
)

// Prompt builders for the four extraction stages. Each prompt is narrowly
// scoped to the fields its stage owns: small prompts keep local models from
// hallucinating unrelated fields and keep context windows short.

// maxPromptText caps how much OCR text is embedded per prompt to avoid
// overflowing small context windows.
const maxPromptText = 5000

func truncateText(text string) string {
	if len(text) <= maxPromptText {
		return text
	}
	return text[:maxPromptText] + "\n[... truncated ...]"
}

const promptFooter = `OUTPUT: valid JSON only, no markdown, no explanation, no text before or after the closing brace.
Use null for any field that cannot be determined. Monetary values are decimal numbers, never strings.`

// BuildPrompt renders the prompt for a stage. The direction is caller
// intent and only influences the counterparty stage, which must know
// whether to look for the vendor or the client.
func BuildPrompt(stage Stage, rawText string, direction models.Direction) string {
	switch stage {
	case StageMetadata:
		return buildMetadataPrompt(rawText)
	case StageCounterparty:
		return buildCounterpartyPrompt(rawText, direction)
	case StageAmounts:
		return buildAmountsPrompt(rawText)
	case StageLineItems:
		return buildLineItemsPrompt(rawText)
	}
	return ""
}

func buildMetadataPrompt(rawText string) string {
	return fmt.Sprintf(`You are a financial document data extraction agent for German receipts and invoices.
Extract ONLY the document metadata from the text below.

FIELDS
receipt_number: invoice/receipt reference number, or null.
receipt_date: date in YYYY-MM-DD format, or null. German format DD.MM.YYYY must be converted to YYYY-MM-DD.
category: choose exactly one from: %s
Mapping:
- internet: ISP, broadband, hosting, domain, webhosting
- telecommunication: phone bills, mobile, SIM, Vodafone, Telekom, O2, 1&1
- software: app subscriptions, SaaS, software licenses bought
- education: courses, books, training, conferences, workshops
- travel: flights, hotels, trains, taxis, rental car, fuel, parking
- equipment: hardware, computers, monitors, office furniture, tools
- material: raw materials, office supplies, packaging, printing
- utilities: electricity, gas, water, heating, waste disposal
- insurance: any Versicherung, policy, premium
- taxes: tax payments, Steuerberater, notary, legal fees, Finanzamt
- services/consulting/products/licensing: only for documents YOU issued to a client
- other: only if truly none of the above apply

DOCUMENT TEXT:
%s

%s
{"receipt_number": null, "receipt_date": null, "category": "other"}
`, models.CategoryList(), truncateText(rawText), promptFooter)
}

func buildCounterpartyPrompt(rawText string, direction models.Direction) string {
	var role string
	if direction.IsPurchase() {
		role = `This is a PURCHASE document (issued TO you). The counterparty is the
vendor/supplier who issued it: their name, address and tax identifiers.`
	} else {
		role = `This is a SALE document (issued BY you to a client). The counterparty is
the recipient/client — look for sections labelled "An:", "Rechnungsempfänger:", "Kunde:", "Bill to:".`
	}

	return fmt.Sprintf(`You are a financial document data extraction agent for German receipts and invoices.
Extract ONLY the counterparty identity from the text below.

%s

FIELDS
name: the actual business or person name.
  DO NOT use field labels as the name. Labels end with ":" and include:
  Kundennr., Rechnungsnr., Datum, Betrag, Steuernummer, IBAN, BIC, E-Mail, Telefon, Web, www.
vat_id: EU VAT ID (format DE123456789), or null.
tax_number: German Steuernummer (format 123/456/78901), or null.
street: street name only (no building number), or null.
street_number: building number, or null.
postcode: postal code, or null.
city: city name, or null.
country: country name, or null.

DOCUMENT TEXT:
%s

%s
{"name": null, "vat_id": null, "tax_number": null, "street": null, "street_number": null, "postcode": null, "city": null, "country": null}
`, role, truncateText(rawText), promptFooter)
}

func buildAmountsPrompt(rawText string) string {
	return fmt.Sprintf(`You are a financial document data extraction agent for German receipts and invoices.
Extract ONLY the monetary amounts from the text below.

FIELDS
total_amount: grand total (gross) as a decimal number. German format "1.234,56 €" means 1234.56. Never a string.
vat_percentage: VAT rate as a number, e.g. 19.0 for 19%% MwSt, or null.
vat_amount: absolute VAT amount as a decimal number, or null.
vat_splits: ONLY when the document carries more than one VAT rate
  (e.g. 19%% and 7%% on the same invoice), one entry per rate with
  vat_rate, base_amount (net base for that rate) and vat_amount.
  Use null when the document has a single VAT rate.

DOCUMENT TEXT:
%s

%s
{"total_amount": null, "vat_percentage": null, "vat_amount": null, "vat_splits": null}
`, truncateText(rawText), promptFooter)
}

func buildLineItemsPrompt(rawText string) string {
	return fmt.Sprintf(`You are a financial document data extraction agent for German receipts and invoices.
Extract ONLY the individual line items (positions) from the text below.

For each position: description, quantity, unit_price, total_price, vat_rate,
vat_amount, category (one of: %s).
Amounts are decimal numbers in euros; German format "1.234,56" means 1234.56.
Skip summary lines (Zwischensumme, Gesamtbetrag, MwSt) — they are not positions.

DOCUMENT TEXT:
%s

%s
{"items": [{"description": null, "quantity": null, "unit_price": null, "total_price": null, "vat_rate": null, "vat_amount": null, "category": "other"}]}
`, models.CategoryList(), truncateText(rawText), promptFooter)
}

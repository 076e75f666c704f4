// Package myinvois implements the LHDN MyInvois integration: the mapper from
// the normalized document model to the canonical UBL-flavored JSON, the
// document preparer, the rate-limited REST client and the validation-error
// parser.
package myinvois

import "encoding/json"

// Schema versions accepted by the authority. 1.1 requires the enveloped
// digital signature block; 1.0 must omit it entirely.
const (
	SchemaVersionUnsigned = "1.0"
	SchemaVersionSigned   = "1.1"
)

// UBL namespace markers carried at the top of every canonical document.
const (
	NsDocInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsAggregate  = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsBasic      = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
)

// ── Scalar leaf nodes ─────────────────────────────────────────────────────────
//
// The wire format wraps every scalar as an array-of-one object with the value
// under "_". Two disjoint wrap rules apply (enforced by the builder helpers in
// mapper.go): currency-bearing amounts are numbers and are omitted when the
// source value is not numeric; every other scalar is a string, with empty
// input emitted as an explicit "" leaf, never an omitted key.

// Text is a plain string leaf.
type Text struct {
	Value string `json:"_"`
}

// Code is a string leaf with an optional catalogue name attribute.
type Code struct {
	Value         string `json:"_"`
	Name          string `json:"name,omitempty"`
	ListID        string `json:"listID,omitempty"`
	ListVersionID string `json:"listVersionID,omitempty"`
}

// Identifier is a string leaf qualified by an identification scheme.
type Identifier struct {
	Value          string `json:"_"`
	SchemeID       string `json:"schemeID,omitempty"`
	SchemeAgencyID string `json:"schemeAgencyID,omitempty"`
}

// Amount is a numeric leaf tagged with its currency.
type Amount struct {
	Value      float64 `json:"_"`
	CurrencyID string  `json:"currencyID,omitempty"`
}

// Quantity is a numeric leaf tagged with a UN/ECE unit code.
type Quantity struct {
	Value    float64 `json:"_"`
	UnitCode string  `json:"unitCode,omitempty"`
}

// Numeric is a bare numeric leaf (rates, percentages).
type Numeric struct {
	Value float64 `json:"_"`
}

// ── Document tree ─────────────────────────────────────────────────────────────

// CanonicalDocument is the canonical submission document: namespace markers
// plus the single Invoice element. Credit and debit notes reuse the Invoice
// shape with a different type code, matching the authority's JSON rendition.
type CanonicalDocument struct {
	D       string    `json:"_D"`
	A       string    `json:"_A"`
	B       string    `json:"_B"`
	Invoice []Invoice `json:"Invoice"`
}

// Invoice is the root UBL element. UBLExtensions and Signature are populated
// by the signer for schema version 1.1 and stay absent for 1.0.
type Invoice struct {
	ID                      []Text            `json:"ID"`
	IssueDate               []Text            `json:"IssueDate"`
	IssueTime               []Text            `json:"IssueTime"`
	InvoiceTypeCode         []Code            `json:"InvoiceTypeCode"`
	DocumentCurrencyCode    []Text            `json:"DocumentCurrencyCode"`
	TaxCurrencyCode         []Text            `json:"TaxCurrencyCode,omitempty"`
	InvoicePeriod           []InvoicePeriod   `json:"InvoicePeriod,omitempty"`
	AccountingSupplierParty []PartyContainer  `json:"AccountingSupplierParty"`
	AccountingCustomerParty []PartyContainer  `json:"AccountingCustomerParty"`
	Delivery                []Delivery        `json:"Delivery,omitempty"`
	PaymentMeans            []PaymentMeans    `json:"PaymentMeans,omitempty"`
	PaymentTerms            []PaymentTerms    `json:"PaymentTerms,omitempty"`
	PrepaidPayment          []PrepaidPayment  `json:"PrepaidPayment,omitempty"`
	AllowanceCharge         []AllowanceCharge `json:"AllowanceCharge,omitempty"`
	TaxExchangeRate         []TaxExchangeRate `json:"TaxExchangeRate,omitempty"`
	TaxTotal                []TaxTotal        `json:"TaxTotal"`
	LegalMonetaryTotal      []MonetaryTotal   `json:"LegalMonetaryTotal"`
	InvoiceLine             []InvoiceLine     `json:"InvoiceLine"`
	UBLExtensions           json.RawMessage   `json:"UBLExtensions,omitempty"`
	Signature               json.RawMessage   `json:"Signature,omitempty"`
}

// InvoicePeriod is the billing period.
type InvoicePeriod struct {
	StartDate   []Text `json:"StartDate,omitempty"`
	EndDate     []Text `json:"EndDate,omitempty"`
	Description []Text `json:"Description,omitempty"`
}

// PartyContainer wraps a Party per the UBL aggregate convention.
type PartyContainer struct {
	AdditionalAccountID []Identifier `json:"AdditionalAccountID,omitempty"`
	Party               []Party      `json:"Party"`
}

// Party describes a supplier, buyer or delivery participant.
type Party struct {
	IndustryClassificationCode []Code                `json:"IndustryClassificationCode,omitempty"`
	PartyIdentification        []PartyIdentification `json:"PartyIdentification"`
	PostalAddress              []PostalAddress       `json:"PostalAddress"`
	PartyLegalEntity           []PartyLegalEntity    `json:"PartyLegalEntity"`
	Contact                    []Contact             `json:"Contact,omitempty"`
}

// PartyIdentification carries one scheme-qualified identifier (TIN, BRN, SST...).
type PartyIdentification struct {
	ID []Identifier `json:"ID"`
}

// PostalAddress is the structured address.
type PostalAddress struct {
	CityName             []Text        `json:"CityName"`
	PostalZone           []Text        `json:"PostalZone"`
	CountrySubentityCode []Text        `json:"CountrySubentityCode"`
	AddressLine          []AddressLine `json:"AddressLine"`
	Country              []Country     `json:"Country"`
}

// AddressLine is one line of the postal address.
type AddressLine struct {
	Line []Text `json:"Line"`
}

// Country wraps the ISO 3166-1 alpha-3 identification code.
type Country struct {
	IdentificationCode []Identifier `json:"IdentificationCode"`
}

// PartyLegalEntity carries the registered name.
type PartyLegalEntity struct {
	RegistrationName []Text `json:"RegistrationName"`
}

// Contact holds telephone and email.
type Contact struct {
	Telephone      []Text `json:"Telephone"`
	ElectronicMail []Text `json:"ElectronicMail"`
}

// Delivery is the optional shipping recipient.
type Delivery struct {
	DeliveryParty []Party `json:"DeliveryParty,omitempty"`
}

// PaymentMeans carries the payment mode, due date and supplier account.
type PaymentMeans struct {
	PaymentMeansCode      []Text                  `json:"PaymentMeansCode"`
	PaymentDueDate        []Text                  `json:"PaymentDueDate,omitempty"`
	PayeeFinancialAccount []PayeeFinancialAccount `json:"PayeeFinancialAccount,omitempty"`
}

// PayeeFinancialAccount is the supplier's bank account reference.
type PayeeFinancialAccount struct {
	ID []Identifier `json:"ID"`
}

// PaymentTerms is the free-text settlement terms.
type PaymentTerms struct {
	Note []Text `json:"Note"`
}

// PrepaidPayment records an amount already settled.
type PrepaidPayment struct {
	PaidAmount []Amount `json:"PaidAmount,omitempty"`
	PaidDate   []Text   `json:"PaidDate,omitempty"`
	PaidTime   []Text   `json:"PaidTime,omitempty"`
}

// AllowanceCharge is a document- or line-level discount or fee.
type AllowanceCharge struct {
	ChargeIndicator       []ChargeIndicator `json:"ChargeIndicator"`
	AllowanceChargeReason []Text            `json:"AllowanceChargeReason,omitempty"`
	Amount                []Amount          `json:"Amount,omitempty"`
}

// ChargeIndicator distinguishes charges (true) from allowances (false).
type ChargeIndicator struct {
	Value bool `json:"_"`
}

// TaxExchangeRate is required when the document currency is not MYR.
type TaxExchangeRate struct {
	SourceCurrencyCode []Text    `json:"SourceCurrencyCode"`
	TargetCurrencyCode []Text    `json:"TargetCurrencyCode"`
	CalculationRate    []Numeric `json:"CalculationRate"`
}

// TaxTotal aggregates the document or line tax.
type TaxTotal struct {
	TaxAmount   []Amount      `json:"TaxAmount"`
	TaxSubtotal []TaxSubtotal `json:"TaxSubtotal,omitempty"`
}

// TaxSubtotal is one tax-category slice of the total.
type TaxSubtotal struct {
	TaxableAmount []Amount      `json:"TaxableAmount,omitempty"`
	TaxAmount     []Amount      `json:"TaxAmount"`
	Percent       []Numeric     `json:"Percent,omitempty"`
	TaxCategory   []TaxCategory `json:"TaxCategory"`
}

// TaxCategory identifies the tax type and exemption detail.
type TaxCategory struct {
	ID                 []Text      `json:"ID"`
	TaxExemptionReason []Text      `json:"TaxExemptionReason,omitempty"`
	TaxScheme          []TaxScheme `json:"TaxScheme"`
}

// TaxScheme is the scheme identifier; missing upstream ids default to "OTH".
type TaxScheme struct {
	ID []Identifier `json:"ID"`
}

// MonetaryTotal is the LegalMonetaryTotal aggregate.
type MonetaryTotal struct {
	LineExtensionAmount   []Amount `json:"LineExtensionAmount,omitempty"`
	TaxExclusiveAmount    []Amount `json:"TaxExclusiveAmount,omitempty"`
	TaxInclusiveAmount    []Amount `json:"TaxInclusiveAmount,omitempty"`
	AllowanceTotalAmount  []Amount `json:"AllowanceTotalAmount,omitempty"`
	PrepaidAmount         []Amount `json:"PrepaidAmount,omitempty"`
	PayableRoundingAmount []Amount `json:"PayableRoundingAmount,omitempty"`
	PayableAmount         []Amount `json:"PayableAmount,omitempty"`
}

// InvoiceLine is one document line.
type InvoiceLine struct {
	ID                  []Text               `json:"ID"`
	InvoicedQuantity    []Quantity           `json:"InvoicedQuantity"`
	LineExtensionAmount []Amount             `json:"LineExtensionAmount,omitempty"`
	AllowanceCharge     []AllowanceCharge    `json:"AllowanceCharge,omitempty"`
	TaxTotal            []TaxTotal           `json:"TaxTotal,omitempty"`
	Item                []Item               `json:"Item"`
	Price               []Price              `json:"Price"`
	ItemPriceExtension  []ItemPriceExtension `json:"ItemPriceExtension,omitempty"`
}

// Item describes the line's goods or service.
type Item struct {
	CommodityClassification []CommodityClassification `json:"CommodityClassification"`
	Description             []Text                    `json:"Description"`
}

// CommodityClassification wraps the classification code.
type CommodityClassification struct {
	ItemClassificationCode []Code `json:"ItemClassificationCode"`
}

// Price is the unit price.
type Price struct {
	PriceAmount []Amount `json:"PriceAmount,omitempty"`
}

// ItemPriceExtension is the line subtotal before document-level adjustments.
type ItemPriceExtension struct {
	Amount []Amount `json:"Amount,omitempty"`
}

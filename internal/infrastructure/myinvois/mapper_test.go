package myinvois_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harithzainudin/invois-gateway/internal/domain/einvoice"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/myinvois"
)

// ──────────────────────────────────────────────────────────────────────────────
// Test builders
// ──────────────────────────────────────────────────────────────────────────────

func buildTestDocument() einvoice.Document {
	issued := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	return einvoice.Document{
		Header: einvoice.Header{
			InvoiceNo:    "INV001",
			TypeCode:     einvoice.TypeInvoice,
			CurrencyCode: "MYR",
			IssueDate:    issued,
		},
		Supplier: einvoice.Party{
			Name:     "Alpha Trading Sdn Bhd",
			TIN:      "C1234567890",
			IDType:   "BRN",
			IDValue:  "202001012345",
			MSICCode: "46900",
			Address: einvoice.Address{
				Line:       "12 Jalan Ampang, Taman Desa",
				City:       "Kuala Lumpur",
				PostalCode: "50450",
				State:      "Kuala Lumpur",
			},
			Contact: einvoice.Contact{Phone: "+60123456789", Email: "billing@alpha.example"},
		},
		Buyer: einvoice.Party{
			Name:    "Beta Retail Sdn Bhd",
			TIN:     "C9876543210",
			IDType:  "BRN",
			IDValue: "201901054321",
			Address: einvoice.Address{
				Line:       "8 Lorong Haji Taib",
				City:       "Ipoh",
				PostalCode: "30000",
				State:      "Perak",
			},
		},
		Items: []einvoice.Item{{
			Description: "Consulting services",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("100.00"),
			Subtotal:    decimal.RequireFromString("100.00"),
			TaxType:     "06",
		}},
		Summary: einvoice.Summary{
			TaxableAmount: decimal.RequireFromString("100.00"),
			TotalExclTax:  decimal.RequireFromString("100.00"),
			TotalInclTax:  decimal.RequireFromString("100.00"),
			PayableAmount: decimal.RequireFromString("100.00"),
		},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// TestMap_PayableAmountWireShape pins the exact wire shape of a currency
// amount: a one-element array whose element holds the numeric value under "_"
// and the currency under "currencyID". The authority's validator rejects any
// other rendition, so this is the canary for the whole mapping layer.
// ──────────────────────────────────────────────────────────────────────────────

func TestMap_PayableAmountWireShape(t *testing.T) {
	m := myinvois.NewMapper()

	doc, err := m.Map([]einvoice.Document{buildTestDocument()}, myinvois.SchemaVersionUnsigned)
	require.NoError(t, err)

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"PayableAmount":[{"_":100,"currencyID":"MYR"}]`,
		"currency amounts must serialize as a numeric array-of-one leaf")
	assert.Contains(t, string(data), `"ID":[{"_":"INV001"}]`)
}

// TestMap_WrapAsymmetry verifies the two leaf rules together: a blank text
// field still emits an explicit empty-string leaf, while an absent optional
// amount drops its key entirely.
func TestMap_WrapAsymmetry(t *testing.T) {
	m := myinvois.NewMapper()
	src := buildTestDocument()
	src.Buyer.Contact.Phone = "" // blank text: leaf must survive
	src.Summary.RoundingAmount = nil

	doc, err := m.Map([]einvoice.Document{src}, myinvois.SchemaVersionUnsigned)
	require.NoError(t, err)
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"Telephone":[{"_":""}]`,
		"blank free-text fields keep an explicit empty leaf")
	assert.NotContains(t, string(data), "PayableRoundingAmount",
		"an absent optional amount drops its key")

	rounding := decimal.RequireFromString("0.02")
	src.Summary.RoundingAmount = &rounding
	doc, err = m.Map([]einvoice.Document{src}, myinvois.SchemaVersionUnsigned)
	require.NoError(t, err)
	data, err = json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"PayableRoundingAmount":[{"_":0.02,"currencyID":"MYR"}]`)
}

// TestMap_Deterministic verifies that identical input yields byte-identical
// canonical JSON; the document hash depends on it.
func TestMap_Deterministic(t *testing.T) {
	m := myinvois.NewMapper()
	src := buildTestDocument()

	doc1, err1 := m.Map([]einvoice.Document{src}, myinvois.SchemaVersionUnsigned)
	doc2, err2 := m.Map([]einvoice.Document{src}, myinvois.SchemaVersionUnsigned)
	require.NoError(t, err1)
	require.NoError(t, err2)

	b1, _ := json.Marshal(doc1)
	b2, _ := json.Marshal(doc2)
	assert.Equal(t, string(b1), string(b2))
}

func TestMap_NoDocuments(t *testing.T) {
	m := myinvois.NewMapper()

	_, err := m.Map(nil, myinvois.SchemaVersionUnsigned)
	require.Error(t, err)
	var mapErr *myinvois.MappingError
	assert.ErrorAs(t, err, &mapErr)
}

func TestMap_MissingDocumentNumber(t *testing.T) {
	m := myinvois.NewMapper()
	src := buildTestDocument()
	src.Header.InvoiceNo = "   "

	_, err := m.Map([]einvoice.Document{src}, myinvois.SchemaVersionUnsigned)
	var mapErr *myinvois.MappingError
	require.ErrorAs(t, err, &mapErr)
}

// TestMap_Defaults covers the blank-field fallbacks: currency, unit code,
// classification and tax type.
func TestMap_Defaults(t *testing.T) {
	m := myinvois.NewMapper()
	src := buildTestDocument()
	src.Header.CurrencyCode = ""
	src.Items[0].UnitCode = ""
	src.Items[0].Classification = ""
	src.Items[0].TaxType = ""

	doc, err := m.Map([]einvoice.Document{src}, myinvois.SchemaVersionUnsigned)
	require.NoError(t, err)

	inv := doc.Invoice[0]
	assert.Equal(t, "MYR", inv.DocumentCurrencyCode[0].Value)

	line := inv.InvoiceLine[0]
	assert.Equal(t, "C62", line.InvoicedQuantity[0].UnitCode)
	assert.Equal(t, "004", line.Item[0].CommodityClassification[0].ItemClassificationCode[0].Value)
	assert.Equal(t, "06", line.TaxTotal[0].TaxSubtotal[0].TaxCategory[0].ID[0].Value)
}

// TestMap_UnknownCurrencyFallsBack: a code ISO 4217 does not know must not
// reach the wire.
func TestMap_UnknownCurrencyFallsBack(t *testing.T) {
	m := myinvois.NewMapper()
	src := buildTestDocument()
	src.Header.CurrencyCode = "RINGGIT"

	doc, err := m.Map([]einvoice.Document{src}, myinvois.SchemaVersionUnsigned)
	require.NoError(t, err)
	assert.Equal(t, "MYR", doc.Invoice[0].DocumentCurrencyCode[0].Value)
}

// TestMap_MergesLinesAcrossDocuments: every document in the slice contributes
// its items while the lead supplies everything else.
func TestMap_MergesLinesAcrossDocuments(t *testing.T) {
	m := myinvois.NewMapper()
	first := buildTestDocument()
	second := buildTestDocument()
	second.Items[0].Description = "Follow-up work"

	doc, err := m.Map([]einvoice.Document{first, second}, myinvois.SchemaVersionUnsigned)
	require.NoError(t, err)

	inv := doc.Invoice[0]
	require.Len(t, inv.InvoiceLine, 2)
	assert.Equal(t, "INV001", inv.ID[0].Value)
	assert.Equal(t, "Follow-up work", inv.InvoiceLine[1].Item[0].Description[0].Value)
}

// TestMap_ExemptAmountGetsOwnSubtotal: a reported exempted value rides as a
// second TaxSubtotal under category E with zero tax and carries the reason,
// which then stays off the base category.
func TestMap_ExemptAmountGetsOwnSubtotal(t *testing.T) {
	m := myinvois.NewMapper()
	src := buildTestDocument()
	src.Summary.TaxExemptAmount = decimal.RequireFromString("40.00")
	src.Summary.TaxExemptReason = "Exempted under Schedule A"

	doc, err := m.Map([]einvoice.Document{src}, myinvois.SchemaVersionUnsigned)
	require.NoError(t, err)

	subtotals := doc.Invoice[0].TaxTotal[0].TaxSubtotal
	require.Len(t, subtotals, 2)

	exempt := subtotals[1]
	assert.Equal(t, "E", exempt.TaxCategory[0].ID[0].Value)
	assert.InDelta(t, 40.0, exempt.TaxableAmount[0].Value, 0.001)
	assert.Zero(t, exempt.TaxAmount[0].Value)
	require.NotEmpty(t, exempt.TaxCategory[0].TaxExemptionReason)
	assert.Equal(t, "Exempted under Schedule A", exempt.TaxCategory[0].TaxExemptionReason[0].Value)
	assert.Empty(t, subtotals[0].TaxCategory[0].TaxExemptionReason)

	// Without an exempted amount the reason stays on the base category and no
	// second subtotal appears.
	src.Summary.TaxExemptAmount = decimal.Zero
	doc, err = m.Map([]einvoice.Document{src}, myinvois.SchemaVersionUnsigned)
	require.NoError(t, err)
	subtotals = doc.Invoice[0].TaxTotal[0].TaxSubtotal
	require.Len(t, subtotals, 1)
	require.NotEmpty(t, subtotals[0].TaxCategory[0].TaxExemptionReason)
}

// TestMap_PaymentDueDate: a due date from the source lands on PaymentMeans
// and an absent one drops the key.
func TestMap_PaymentDueDate(t *testing.T) {
	m := myinvois.NewMapper()
	src := buildTestDocument()
	due := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)
	src.Payment.DueDate = &due

	doc, err := m.Map([]einvoice.Document{src}, myinvois.SchemaVersionUnsigned)
	require.NoError(t, err)

	means := doc.Invoice[0].PaymentMeans[0]
	require.NotEmpty(t, means.PaymentDueDate)
	assert.Equal(t, "2026-04-14", means.PaymentDueDate[0].Value)

	src.Payment.DueDate = nil
	doc, err = m.Map([]einvoice.Document{src}, myinvois.SchemaVersionUnsigned)
	require.NoError(t, err)
	data, _ := json.Marshal(doc)
	assert.NotContains(t, string(data), "PaymentDueDate")
}

// TestMap_StateNameResolvesToCode: free-text state names map onto the
// official two-digit codes.
func TestMap_StateNameResolvesToCode(t *testing.T) {
	m := myinvois.NewMapper()
	src := buildTestDocument()

	doc, err := m.Map([]einvoice.Document{src}, myinvois.SchemaVersionUnsigned)
	require.NoError(t, err)

	supplier := doc.Invoice[0].AccountingSupplierParty[0].Party[0]
	assert.Equal(t, "14", supplier.PostalAddress[0].CountrySubentityCode[0].Value,
		"Kuala Lumpur resolves to state code 14")

	data, _ := json.Marshal(doc)
	assert.True(t, strings.Contains(string(data), `"schemeID":"TIN"`))
}

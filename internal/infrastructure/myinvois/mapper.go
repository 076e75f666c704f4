package myinvois

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/harithzainudin/invois-gateway/internal/domain/einvoice"
)

// Defaults applied when the upstream spreadsheet leaves a field blank.
const (
	DefaultCurrency       = "MYR"
	DefaultUnitCode       = "C62" // UN/ECE "one"
	DefaultTaxScheme      = "OTH"
	DefaultClassification = "004" // consolidated e-invoice bucket
	DefaultCountry        = "MYS"

	schemeTIN = "TIN"
	schemeSST = "SST"
)

// Mapper converts normalized documents into the canonical submission JSON.
// Pure: no I/O, deterministic for identical input.
type Mapper struct{}

// NewMapper creates the mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// Map builds the canonical document for one filing. The lead document
// supplies the header, parties, payment and summary; every document in the
// slice contributes its line items (multi-row spreadsheets arrive merged this
// way). Fails with MappingError when documents is empty or the lead document
// has no document number.
func (m *Mapper) Map(documents []einvoice.Document, schemaVersion string) (*CanonicalDocument, error) {
	if len(documents) == 0 {
		return nil, &MappingError{Reason: "no documents to map"}
	}
	lead := documents[0]
	if strings.TrimSpace(lead.Header.InvoiceNo) == "" {
		return nil, &MappingError{Reason: "lead document has no document number"}
	}

	cur := normalizeCurrency(lead.Header.CurrencyCode)
	typeCode := lead.Header.TypeCode
	if typeCode == "" {
		typeCode = einvoice.TypeInvoice
	}

	inv := Invoice{
		ID:        text(lead.Header.InvoiceNo),
		IssueDate: text(lead.Header.IssueDate.UTC().Format("2006-01-02")),
		IssueTime: text(lead.Header.IssueDate.UTC().Format("15:04:05Z")),
		InvoiceTypeCode: []Code{{
			Value:         typeCode,
			ListVersionID: schemaVersion,
		}},
		DocumentCurrencyCode:    text(cur),
		AccountingSupplierParty: m.buildSupplierParty(lead.Supplier),
		AccountingCustomerParty: m.buildCustomerParty(lead.Buyer),
	}

	if cur != DefaultCurrency {
		inv.TaxCurrencyCode = text(DefaultCurrency)
		if lead.Header.ExchangeRate.IsPositive() {
			inv.TaxExchangeRate = []TaxExchangeRate{{
				SourceCurrencyCode: text(cur),
				TargetCurrencyCode: text(DefaultCurrency),
				CalculationRate:    num(lead.Header.ExchangeRate),
			}}
		}
	}

	if p := m.buildPeriod(lead.Header); p != nil {
		inv.InvoicePeriod = p
	}
	if lead.Delivery != nil {
		inv.Delivery = []Delivery{{DeliveryParty: []Party{m.buildParty(*lead.Delivery, false)}}}
	}

	inv.PaymentMeans, inv.PaymentTerms, inv.PrepaidPayment = m.buildPayment(lead.Payment, cur)
	inv.AllowanceCharge = m.buildDocumentAllowances(lead, cur)
	inv.TaxTotal = m.buildTaxTotal(lead, cur)
	inv.LegalMonetaryTotal = m.buildMonetaryTotal(lead.Summary, cur)

	for _, d := range documents {
		for i, item := range d.Items {
			inv.InvoiceLine = append(inv.InvoiceLine, m.buildLine(item, i+1, cur))
		}
	}

	return &CanonicalDocument{
		D:       NsDocInvoice,
		A:       NsAggregate,
		B:       NsBasic,
		Invoice: []Invoice{inv},
	}, nil
}

func (m *Mapper) buildPeriod(h einvoice.Header) []InvoicePeriod {
	if h.PeriodStart == nil && h.PeriodEnd == nil && h.PeriodDesc == "" {
		return nil
	}
	p := InvoicePeriod{Description: text(h.PeriodDesc)}
	if h.PeriodStart != nil {
		p.StartDate = text(h.PeriodStart.Format("2006-01-02"))
	}
	if h.PeriodEnd != nil {
		p.EndDate = text(h.PeriodEnd.Format("2006-01-02"))
	}
	return []InvoicePeriod{p}
}

func (m *Mapper) buildSupplierParty(p einvoice.Party) []PartyContainer {
	c := PartyContainer{Party: []Party{m.buildParty(p, true)}}
	return []PartyContainer{c}
}

func (m *Mapper) buildCustomerParty(p einvoice.Party) []PartyContainer {
	return []PartyContainer{{Party: []Party{m.buildParty(p, false)}}}
}

// buildParty assembles the shared party shape. Suppliers additionally carry
// the MSIC industry classification.
func (m *Mapper) buildParty(p einvoice.Party, supplier bool) Party {
	idType := p.IDType
	if idType == "" {
		idType = "BRN"
	}
	out := Party{
		PartyIdentification: []PartyIdentification{
			{ID: []Identifier{{Value: p.TIN, SchemeID: schemeTIN}}},
			{ID: []Identifier{{Value: p.IDValue, SchemeID: idType}}},
		},
		PostalAddress:    m.buildAddress(p.Address),
		PartyLegalEntity: []PartyLegalEntity{{RegistrationName: text(p.Name)}},
		Contact: []Contact{{
			Telephone:      text(p.Contact.Phone),
			ElectronicMail: text(p.Contact.Email),
		}},
	}
	if p.SSTRegistration != "" {
		out.PartyIdentification = append(out.PartyIdentification, PartyIdentification{
			ID: []Identifier{{Value: p.SSTRegistration, SchemeID: schemeSST}},
		})
	}
	if supplier {
		out.IndustryClassificationCode = []Code{{Value: p.MSICCode, Name: p.BusinessDesc}}
	}
	return out
}

func (m *Mapper) buildAddress(a einvoice.Address) []PostalAddress {
	country := a.CountryCode
	if country == "" {
		country = DefaultCountry
	}
	lines := SplitAddressLines(a.Line)
	addrLines := make([]AddressLine, 0, len(lines))
	for _, l := range lines {
		addrLines = append(addrLines, AddressLine{Line: text(l)})
	}
	if len(addrLines) == 0 {
		addrLines = []AddressLine{{Line: text("")}}
	}
	return []PostalAddress{{
		CityName:             text(a.City),
		PostalZone:           text(a.PostalCode),
		CountrySubentityCode: text(einvoice.StateCode(a.State)),
		AddressLine:          addrLines,
		Country: []Country{{
			IdentificationCode: []Identifier{{
				Value:          country,
				SchemeID:       "ISO3166-1",
				SchemeAgencyID: "6",
			}},
		}},
	}}
}

func (m *Mapper) buildPayment(p einvoice.Payment, cur string) ([]PaymentMeans, []PaymentTerms, []PrepaidPayment) {
	meansCode := p.MeansCode
	if meansCode == "" {
		meansCode = "01" // cash
	}
	means := PaymentMeans{PaymentMeansCode: text(meansCode)}
	if p.DueDate != nil {
		means.PaymentDueDate = text(p.DueDate.Format("2006-01-02"))
	}
	if p.AccountID != "" {
		means.PayeeFinancialAccount = []PayeeFinancialAccount{{
			ID: []Identifier{{Value: p.AccountID}},
		}}
	}

	terms := []PaymentTerms{{Note: text(p.Terms)}}

	var prepaid []PrepaidPayment
	if p.PrepaidAmount.IsPositive() {
		pp := PrepaidPayment{PaidAmount: amt(p.PrepaidAmount, cur)}
		if p.PrepaidDate != nil {
			pp.PaidDate = text(p.PrepaidDate.Format("2006-01-02"))
			pp.PaidTime = text(p.PrepaidDate.UTC().Format("15:04:05Z"))
		}
		prepaid = []PrepaidPayment{pp}
	}
	return []PaymentMeans{means}, terms, prepaid
}

func (m *Mapper) buildDocumentAllowances(d einvoice.Document, cur string) []AllowanceCharge {
	if !d.Summary.TotalDiscount.IsPositive() {
		return nil
	}
	return []AllowanceCharge{{
		ChargeIndicator:       []ChargeIndicator{{Value: false}},
		AllowanceChargeReason: text("Discount"),
		Amount:                amt(d.Summary.TotalDiscount, cur),
	}}
}

func (m *Mapper) buildTaxTotal(d einvoice.Document, cur string) []TaxTotal {
	subtotals := []TaxSubtotal{{
		TaxableAmount: amt(d.Summary.TaxableAmount, cur),
		TaxAmount:     amt(d.Summary.TaxAmount, cur),
		TaxCategory:   []TaxCategory{m.taxCategory(d)},
	}}
	if d.Summary.TaxExemptAmount.IsPositive() {
		// An exempted value rides as its own subtotal under category E with
		// zero tax, which is how the authority expects exemptions reported.
		exempt := TaxCategory{
			ID:        text("E"),
			TaxScheme: taxScheme(),
		}
		if d.Summary.TaxExemptReason != "" {
			exempt.TaxExemptionReason = text(d.Summary.TaxExemptReason)
		}
		subtotals = append(subtotals, TaxSubtotal{
			TaxableAmount: amt(d.Summary.TaxExemptAmount, cur),
			TaxAmount:     amt(decimal.Zero, cur),
			TaxCategory:   []TaxCategory{exempt},
		})
	}
	return []TaxTotal{{
		TaxAmount:   amt(d.Summary.TaxAmount, cur),
		TaxSubtotal: subtotals,
	}}
}

// taxCategory derives the document-level category from the lead line; blank
// tax types fall back to "06" (not applicable) and blank scheme ids to "OTH".
// The exemption reason stays here only when no exempted amount is reported,
// otherwise the category E subtotal carries it.
func (m *Mapper) taxCategory(d einvoice.Document) TaxCategory {
	taxType := "06"
	if len(d.Items) > 0 && d.Items[0].TaxType != "" {
		taxType = d.Items[0].TaxType
	}
	cat := TaxCategory{
		ID:        text(taxType),
		TaxScheme: taxScheme(),
	}
	if d.Summary.TaxExemptReason != "" && !d.Summary.TaxExemptAmount.IsPositive() {
		cat.TaxExemptionReason = text(d.Summary.TaxExemptReason)
	}
	return cat
}

func taxScheme() []TaxScheme {
	return []TaxScheme{{
		ID: []Identifier{{Value: DefaultTaxScheme, SchemeID: "UN/ECE 5153", SchemeAgencyID: "6"}},
	}}
}

func (m *Mapper) buildMonetaryTotal(s einvoice.Summary, cur string) []MonetaryTotal {
	t := MonetaryTotal{
		LineExtensionAmount: amt(s.TotalExclTax, cur),
		TaxExclusiveAmount:  amt(s.TotalExclTax, cur),
		TaxInclusiveAmount:  amt(s.TotalInclTax, cur),
		PayableAmount:       amt(s.PayableAmount, cur),
	}
	if s.TotalDiscount.IsPositive() {
		t.AllowanceTotalAmount = amt(s.TotalDiscount, cur)
	}
	t.PayableRoundingAmount = amtOpt(s.RoundingAmount, cur)
	return []MonetaryTotal{t}
}

func (m *Mapper) buildLine(item einvoice.Item, ordinal int, cur string) InvoiceLine {
	id := item.ID
	if id == "" {
		id = fmt.Sprintf("%d", ordinal)
	}
	unit := item.UnitCode
	if unit == "" {
		unit = DefaultUnitCode
	}
	classification := item.Classification
	if classification == "" {
		classification = DefaultClassification
	}
	taxType := item.TaxType
	if taxType == "" {
		taxType = "06"
	}

	line := InvoiceLine{
		ID:                  text(id),
		InvoicedQuantity:    []Quantity{{Value: f64(item.Quantity), UnitCode: unit}},
		LineExtensionAmount: amt(item.Subtotal, cur),
		TaxTotal: []TaxTotal{{
			TaxAmount: amt(item.TaxAmount, cur),
			TaxSubtotal: []TaxSubtotal{{
				TaxableAmount: amt(item.Subtotal, cur),
				TaxAmount:     amt(item.TaxAmount, cur),
				Percent:       num(item.TaxRate),
				TaxCategory: []TaxCategory{{
					ID:        text(taxType),
					TaxScheme: taxScheme(),
				}},
			}},
		}},
		Item: []Item{{
			CommodityClassification: []CommodityClassification{{
				ItemClassificationCode: []Code{{Value: classification, ListID: "CLASS"}},
			}},
			Description: text(item.Description),
		}},
		Price:              []Price{{PriceAmount: amt(item.UnitPrice, cur)}},
		ItemPriceExtension: []ItemPriceExtension{{Amount: amt(item.Subtotal, cur)}},
	}
	if item.DiscountAmount.IsPositive() {
		line.AllowanceCharge = []AllowanceCharge{{
			ChargeIndicator:       []ChargeIndicator{{Value: false}},
			AllowanceChargeReason: text(item.DiscountReason),
			Amount:                amt(item.DiscountAmount, cur),
		}}
	}
	return line
}

// ── Wrap helpers ──────────────────────────────────────────────────────────────

// text wraps a free-text scalar. Empty input still yields an explicit ""
// leaf: the schema requires the node to exist, and an omitted key is a
// validation error while an empty string is not.
func text(s string) []Text {
	return []Text{{Value: strings.TrimSpace(s)}}
}

// amt wraps a currency amount as a number. Rounded to 2 decimals at the wire
// boundary; internal arithmetic stays decimal.
func amt(d decimal.Decimal, cur string) []Amount {
	return []Amount{{Value: f64(d), CurrencyID: cur}}
}

// amtOpt wraps an optional amount. A missing (non-numeric upstream) value
// yields a nil slice, which omitempty drops from the payload; the amount
// rules and the free-text rules are deliberately asymmetric.
func amtOpt(d *decimal.Decimal, cur string) []Amount {
	if d == nil {
		return nil
	}
	return amt(*d, cur)
}

func num(d decimal.Decimal) []Numeric {
	return []Numeric{{Value: f64(d)}}
}

func f64(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// normalizeCurrency validates the upstream currency against ISO 4217 and
// falls back to MYR for blank or unknown codes.
func normalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	if unit, err := currency.ParseISO(code); err == nil {
		return unit.String()
	}
	return DefaultCurrency
}

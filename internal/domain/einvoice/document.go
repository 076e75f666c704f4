// Package einvoice holds the normalized document model handed to the MyInvois
// mapper. Instances are produced by the spreadsheet consumer and are treated
// as immutable once mapping starts.
package einvoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// Document type codes per the MyInvois document-type catalogue.
const (
	TypeInvoice    = "01"
	TypeCreditNote = "02"
	TypeDebitNote  = "03"
)

// Document is one invoice-like record in its normalized form.
type Document struct {
	Header   Header
	Supplier Party
	Buyer    Party
	Delivery *Party // optional shipping recipient
	Items    []Item
	Summary  Summary
	Payment  Payment
}

// Header identifies the document and its billing context.
type Header struct {
	InvoiceNo    string
	TypeCode     string // 01 invoice, 02 credit note, 03 debit note
	CurrencyCode string // ISO 4217; defaults to MYR in the mapper
	IssueDate    time.Time
	PeriodStart  *time.Time
	PeriodEnd    *time.Time
	PeriodDesc   string // e.g. "Monthly"
	ExchangeRate decimal.Decimal // tax currency exchange rate; zero when domestic
}

// Party is a supplier, buyer or delivery participant.
type Party struct {
	Name            string
	TIN             string
	IDType          string // BRN, NRIC, PASSPORT, ARMY
	IDValue         string
	SSTRegistration string
	MSICCode        string // supplier only
	BusinessDesc    string // supplier only
	Address         Address
	Contact         Contact
}

// Address as supplied upstream. Line may be a single run-on string; the
// mapper re-splits it.
type Address struct {
	Line        string
	City        string
	PostalCode  string
	State       string // free-text name or two-digit code
	CountryCode string // ISO 3166-1 alpha-3; defaults to MYS
}

// Contact details for a party.
type Contact struct {
	Phone string
	Email string
}

// Item is a single document line.
type Item struct {
	ID             string // line id within the document
	Description    string
	Classification string // item classification code, e.g. "001"
	Quantity       decimal.Decimal
	UnitCode       string // UN/ECE rec 20, e.g. "C62"
	UnitPrice      decimal.Decimal
	Subtotal       decimal.Decimal
	TaxType        string // tax type code, e.g. "01" sales tax; "06" not applicable
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	DiscountReason string
}

// Summary aggregates the document totals.
type Summary struct {
	TaxableAmount   decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalExclTax    decimal.Decimal
	TotalInclTax    decimal.Decimal
	TotalDiscount   decimal.Decimal
	PayableAmount   decimal.Decimal
	RoundingAmount  *decimal.Decimal // nil when the spreadsheet cell is blank or non-numeric
	TaxExemptAmount decimal.Decimal
	TaxExemptReason string
}

// Payment carries the settlement terms.
type Payment struct {
	MeansCode     string // payment means catalogue, e.g. "01" cash
	Terms         string
	DueDate       *time.Time
	PrepaidAmount decimal.Decimal
	PrepaidDate   *time.Time
	AccountID     string // supplier bank account
}

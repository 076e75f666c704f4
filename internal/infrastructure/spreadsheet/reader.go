// Package spreadsheet converts an operator-maintained invoice workbook into
// the normalized document model. The workbook has a fixed layout: an
// "Invoice" sheet with label/value pairs and an "Items" sheet with one line
// per row under a header row. File discovery is out of scope; callers hand in
// an already-located path.
package spreadsheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/harithzainudin/invois-gateway/internal/domain/einvoice"
)

const (
	sheetInvoice = "Invoice"
	sheetItems   = "Items"
)

// ParseError aggregates every cell-level problem found in a workbook. The
// whole file is rejected: a partially-read invoice must never be filed.
type ParseError struct {
	File     string
	Problems []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %s", e.File, strings.Join(e.Problems, "; "))
}

// Reader parses invoice workbooks.
type Reader struct{}

// NewReader creates the workbook reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read opens the workbook at path and builds the documents it describes.
// Currently one workbook holds one invoice; the slice return leaves room for
// multi-invoice workbooks without an API break.
func (r *Reader) Read(path string) ([]einvoice.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	var problems []string

	fields, err := r.readFields(f)
	if err != nil {
		return nil, err
	}

	doc := einvoice.Document{}
	r.fillHeader(&doc, fields, &problems)
	doc.Supplier = r.readParty(fields, "supplier", true, &problems)
	doc.Buyer = r.readParty(fields, "buyer", false, &problems)
	r.fillPayment(&doc, fields, &problems)

	doc.Items = r.readItems(f, &problems)
	r.fillSummary(&doc, fields)

	if len(problems) > 0 {
		return nil, &ParseError{File: path, Problems: problems}
	}
	return []einvoice.Document{doc}, nil
}

// readFields loads the Invoice sheet's label/value pairs. Labels are
// normalized to lower case so operators can spell them freely.
func (r *Reader) readFields(f *excelize.File) (map[string]string, error) {
	rows, err := f.GetRows(sheetInvoice)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheetInvoice, err)
	}
	fields := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(row[0]))
		if label == "" {
			continue
		}
		fields[label] = strings.TrimSpace(row[1])
	}
	return fields, nil
}

func (r *Reader) fillHeader(doc *einvoice.Document, fields map[string]string, problems *[]string) {
	doc.Header.InvoiceNo = fields["invoice no"]
	if doc.Header.InvoiceNo == "" {
		*problems = append(*problems, "Invoice sheet: missing 'Invoice No'")
	}

	doc.Header.TypeCode = fields["type"]
	if doc.Header.TypeCode == "" {
		doc.Header.TypeCode = einvoice.TypeInvoice
	}
	doc.Header.CurrencyCode = fields["currency"]

	if raw := fields["issue date"]; raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			*problems = append(*problems, fmt.Sprintf("Invoice sheet: bad 'Issue Date' %q", raw))
		} else {
			doc.Header.IssueDate = t
		}
	} else {
		*problems = append(*problems, "Invoice sheet: missing 'Issue Date'")
	}

	if raw := fields["exchange rate"]; raw != "" {
		if d, err := parseDecimal(raw); err == nil {
			doc.Header.ExchangeRate = d
		}
	}
}

// readParty pulls one participant's fields using a label prefix, e.g.
// "Supplier Name", "Buyer TIN".
func (r *Reader) readParty(fields map[string]string, prefix string, supplier bool, problems *[]string) einvoice.Party {
	get := func(suffix string) string { return fields[prefix+" "+suffix] }

	p := einvoice.Party{
		Name:            get("name"),
		TIN:             strings.ToUpper(get("tin")),
		IDType:          strings.ToUpper(get("id type")),
		IDValue:         get("id value"),
		SSTRegistration: get("sst"),
		Address: einvoice.Address{
			Line:        get("address"),
			City:        get("city"),
			PostalCode:  get("postcode"),
			State:       get("state"),
			CountryCode: strings.ToUpper(get("country")),
		},
		Contact: einvoice.Contact{
			Phone: get("phone"),
			Email: get("email"),
		},
	}
	if supplier {
		p.MSICCode = get("msic")
		p.BusinessDesc = get("business description")
	}

	if p.Name == "" {
		*problems = append(*problems, fmt.Sprintf("Invoice sheet: missing '%s name'", prefix))
	}
	if p.TIN == "" {
		*problems = append(*problems, fmt.Sprintf("Invoice sheet: missing '%s TIN'", prefix))
	}
	return p
}

func (r *Reader) fillPayment(doc *einvoice.Document, fields map[string]string, problems *[]string) {
	doc.Payment.MeansCode = fields["payment means"]
	doc.Payment.Terms = fields["payment terms"]
	doc.Payment.AccountID = fields["bank account"]
	if raw := fields["due date"]; raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			*problems = append(*problems, fmt.Sprintf("Invoice sheet: bad 'Due Date' %q", raw))
		} else {
			doc.Payment.DueDate = &t
		}
	}
	if raw := fields["prepaid amount"]; raw != "" {
		if d, err := parseDecimal(raw); err == nil {
			doc.Payment.PrepaidAmount = d
		}
	}
}

// itemColumns is the fixed column order on the Items sheet.
const (
	colLineID = iota
	colDescription
	colClassification
	colQuantity
	colUnit
	colUnitPrice
	colDiscount
	colTaxType
	colTaxRate
	itemColumnCount
)

// readItems parses the Items sheet, skipping the header row. Line amounts are
// derived, not read: quantity times unit price minus discount, tax from the
// rate. One bad cell fails its row with a precise message and parsing
// continues, so the operator sees every problem at once.
func (r *Reader) readItems(f *excelize.File, problems *[]string) []einvoice.Item {
	rows, err := f.GetRows(sheetItems)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("reading sheet %s: %v", sheetItems, err))
		return nil
	}
	if len(rows) < 2 {
		*problems = append(*problems, "Items sheet: no line items")
		return nil
	}

	var items []einvoice.Item
	for i, row := range rows[1:] {
		rowNo := i + 2 // 1-based, after the header
		if isBlankRow(row) {
			continue
		}
		item, rowProblems := parseItemRow(row, rowNo)
		if len(rowProblems) > 0 {
			*problems = append(*problems, rowProblems...)
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 && len(*problems) == 0 {
		*problems = append(*problems, "Items sheet: no line items")
	}
	return items
}

// isBlankRow reports whether the row carries no line item. The line-ID column
// is the marker: operators leave it empty on spacer rows.
func isBlankRow(row []string) bool {
	return len(row) == 0 || strings.TrimSpace(row[colLineID]) == ""
}

func parseItemRow(row []string, rowNo int) (einvoice.Item, []string) {
	cell := func(col int) string {
		if col < len(row) {
			return strings.TrimSpace(row[col])
		}
		return ""
	}

	var problems []string
	mustDecimal := func(col int, name string) decimal.Decimal {
		raw := cell(col)
		if raw == "" {
			problems = append(problems, fmt.Sprintf("Items row %d: missing %s", rowNo, name))
			return decimal.Zero
		}
		d, err := parseDecimal(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("Items row %d: bad %s %q", rowNo, name, raw))
			return decimal.Zero
		}
		return d
	}
	optDecimal := func(col int) decimal.Decimal {
		raw := cell(col)
		if raw == "" {
			return decimal.Zero
		}
		d, err := parseDecimal(raw)
		if err != nil {
			return decimal.Zero
		}
		return d
	}

	item := einvoice.Item{
		ID:             cell(colLineID),
		Description:    cell(colDescription),
		Classification: cell(colClassification),
		Quantity:       mustDecimal(colQuantity, "quantity"),
		UnitCode:       cell(colUnit),
		UnitPrice:      mustDecimal(colUnitPrice, "unit price"),
		DiscountAmount: optDecimal(colDiscount),
		TaxType:        cell(colTaxType),
		TaxRate:        optDecimal(colTaxRate),
	}
	if item.Description == "" {
		problems = append(problems, fmt.Sprintf("Items row %d: missing description", rowNo))
	}
	if len(problems) > 0 {
		return einvoice.Item{}, problems
	}

	item.Subtotal = item.Quantity.Mul(item.UnitPrice).Sub(item.DiscountAmount)
	item.TaxAmount = item.Subtotal.Mul(item.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	return item, nil
}

// fillSummary derives the totals from the parsed lines. The rounding
// adjustment is the one total read from the sheet, and only when the cell
// holds a number; a blank or textual cell leaves it absent.
func (r *Reader) fillSummary(doc *einvoice.Document, fields map[string]string) {
	var taxable, tax, discount decimal.Decimal
	for _, it := range doc.Items {
		taxable = taxable.Add(it.Subtotal)
		tax = tax.Add(it.TaxAmount)
		discount = discount.Add(it.DiscountAmount)
	}
	doc.Summary.TaxableAmount = taxable
	doc.Summary.TaxAmount = tax
	doc.Summary.TotalDiscount = discount
	doc.Summary.TotalExclTax = taxable
	doc.Summary.TotalInclTax = taxable.Add(tax)
	doc.Summary.PayableAmount = doc.Summary.TotalInclTax.Sub(doc.Payment.PrepaidAmount)

	if raw := fields["rounding"]; raw != "" {
		if d, err := parseDecimal(raw); err == nil {
			doc.Summary.RoundingAmount = &d
			doc.Summary.PayableAmount = doc.Summary.PayableAmount.Add(d)
		}
	}
}

// parseDecimal accepts operator formatting: thousands separators and a
// leading currency marker.
func parseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.ToUpper(s), "RM")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	return decimal.NewFromString(s)
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"01-02-06", // excelize's default rendition of date-formatted cells
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

package spreadsheet_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/harithzainudin/invois-gateway/internal/infrastructure/spreadsheet"
)

// writeWorkbook builds a workbook in the fixed layout and saves it under the
// test's temp dir. mutate adjusts the default fixture before saving.
func writeWorkbook(t *testing.T, mutate func(f *excelize.File)) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Invoice"))
	_, err := f.NewSheet("Items")
	require.NoError(t, err)

	invoice := [][]any{
		{"Invoice No", "INV001"},
		{"Type", "01"},
		{"Currency", "MYR"},
		{"Issue Date", "2026-04-02"},
		{"Supplier Name", "Alpha Trading Sdn Bhd"},
		{"Supplier TIN", "C1234567890"},
		{"Supplier ID Type", "BRN"},
		{"Supplier ID Value", "202001012345"},
		{"Supplier MSIC", "46900"},
		{"Supplier Address", "12 Jalan Ampang, Taman Desa"},
		{"Supplier City", "Kuala Lumpur"},
		{"Supplier Postcode", "50450"},
		{"Supplier State", "Kuala Lumpur"},
		{"Supplier Phone", "+60123456789"},
		{"Supplier Email", "billing@alpha.example"},
		{"Buyer Name", "Beta Retail Sdn Bhd"},
		{"Buyer TIN", "C9876543210"},
		{"Buyer ID Type", "BRN"},
		{"Buyer ID Value", "201901054321"},
		{"Buyer Address", "8 Lorong Haji Taib"},
		{"Buyer City", "Ipoh"},
		{"Buyer Postcode", "30000"},
		{"Buyer State", "Perak"},
		{"Payment Means", "01"},
	}
	for i, row := range invoice {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Invoice", cell, &row))
	}

	items := [][]any{
		{"Line", "Description", "Classification", "Quantity", "Unit", "Unit Price", "Discount", "Tax Type", "Tax Rate"},
		{"1", "Consulting services", "001", "2", "C62", "RM 1,250.00", "50", "01", "8"},
		{"2", "Travel expenses", "001", "1", "C62", "300", "", "06", ""},
	}
	for i, row := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Items", cell, &row))
	}

	if mutate != nil {
		mutate(f)
	}

	path := filepath.Join(t.TempDir(), "invoice.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

// ──────────────────────────────────────────────────────────────────────────────
// TestRead_FullWorkbook checks the whole pipeline: fields, parties, lines with
// derived amounts, and the summary computed from the lines.
// ──────────────────────────────────────────────────────────────────────────────

func TestRead_FullWorkbook(t *testing.T) {
	path := writeWorkbook(t, nil)

	docs, err := spreadsheet.NewReader().Read(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	doc := docs[0]

	assert.Equal(t, "INV001", doc.Header.InvoiceNo)
	assert.Equal(t, "MYR", doc.Header.CurrencyCode)
	assert.Equal(t, 2026, doc.Header.IssueDate.Year())

	assert.Equal(t, "C1234567890", doc.Supplier.TIN)
	assert.Equal(t, "46900", doc.Supplier.MSICCode)
	assert.Equal(t, "Perak", doc.Buyer.Address.State)

	require.Len(t, doc.Items, 2)
	first := doc.Items[0]
	// 2 * 1250.00 - 50 = 2450.00, tax 8% = 196.00
	assert.Equal(t, "2450", first.Subtotal.String())
	assert.Equal(t, "196", first.TaxAmount.String())

	// Summary derives from the lines: 2450 + 300 taxable, 196 tax.
	assert.Equal(t, "2750", doc.Summary.TaxableAmount.String())
	assert.Equal(t, "196", doc.Summary.TaxAmount.String())
	assert.Equal(t, "2946", doc.Summary.PayableAmount.String())
	assert.Nil(t, doc.Summary.RoundingAmount)
}

// TestRead_RoundingCell: a numeric rounding cell becomes the optional
// adjustment and shifts the payable amount; a textual one is ignored.
func TestRead_RoundingCell(t *testing.T) {
	path := writeWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Invoice", "A25", &[]any{"Rounding", "0.04"}))
	})

	docs, err := spreadsheet.NewReader().Read(path)
	require.NoError(t, err)
	require.NotNil(t, docs[0].Summary.RoundingAmount)
	assert.Equal(t, "0.04", docs[0].Summary.RoundingAmount.String())
	assert.Equal(t, "2946.04", docs[0].Summary.PayableAmount.String())

	path = writeWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Invoice", "A25", &[]any{"Rounding", "n/a"}))
	})
	docs, err = spreadsheet.NewReader().Read(path)
	require.NoError(t, err)
	assert.Nil(t, docs[0].Summary.RoundingAmount)
}

// TestRead_ProblemsAccumulate: every bad cell is reported in one pass, and a
// file with any problem yields no documents.
func TestRead_ProblemsAccumulate(t *testing.T) {
	path := writeWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Invoice", "A1", &[]any{"Invoice No", ""}))
		require.NoError(t, f.SetSheetRow("Items", "A2", &[]any{"1", "Consulting services", "001", "two", "C62", "abc", "", "01", ""}))
	})

	_, err := spreadsheet.NewReader().Read(path)
	var parseErr *spreadsheet.ParseError
	require.ErrorAs(t, err, &parseErr)

	joined := parseErr.Error()
	assert.Contains(t, joined, "Invoice No")
	assert.Contains(t, joined, "Items row 2")
	assert.Contains(t, joined, "quantity")
	assert.Contains(t, joined, "unit price")
}

func TestRead_NoItems(t *testing.T) {
	path := writeWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Items", "A2", &[]any{""}))
		require.NoError(t, f.SetSheetRow("Items", "A3", &[]any{""}))
	})

	_, err := spreadsheet.NewReader().Read(path)
	var parseErr *spreadsheet.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Error(), "no line items")
}

func TestRead_MissingFile(t *testing.T) {
	_, err := spreadsheet.NewReader().Read(filepath.Join(t.TempDir(), "absent.xlsx"))
	assert.Error(t, err)
}

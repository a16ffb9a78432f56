package export

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/flatten"
)

func strPtr(s string) *string { return &s }

func testRowSets() []flatten.RowSet {
	itemTotal := 25287.36
	return []flatten.RowSet{
		{
			Invoice: flatten.InvoiceRow{
				InvoiceNumber:  "INV-001",
				Date:           strPtr("12/01/2024"),
				Currency:       strPtr("USD"),
				TotalCases:     15,
				TotalQuantity:  "5,495.60 LB",
				TotalValue:     29452.36,
				SourceFilename: "scan_0042.pdf",
			},
			Items: []flatten.ItemRow{
				{InvoiceNumber: "INV-001", Cases: 10, Code: "A1", GoodsDescriptions: "SALMON FILLET", Quantity: "4,515.60 LB", UnitValue: 5.6, ItemTotalValue: &itemTotal},
				{InvoiceNumber: "INV-001", Cases: 5, Code: "B2", GoodsDescriptions: "TROUT PORTIONS", Quantity: "980.00 LB", UnitValue: 4.25},
			},
		},
		{
			Invoice: flatten.InvoiceRow{
				InvoiceNumber: "scan_0099",
				TotalQuantity: "",
			},
		},
	}
}

func TestWorkbook(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	b, err := NewService(logger).Workbook(testRowSets())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	require.ElementsMatch(t, []string{"Invoices", "Items"}, f.GetSheetList())

	rows, err := f.GetRows("Invoices")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per invoice")
	require.Equal(t, invoiceHeaders, rows[0][:len(invoiceHeaders)])
	require.Equal(t, "INV-001", rows[1][0])
	require.Equal(t, "USD", rows[1][3])
	require.Equal(t, "5,495.60 LB", rows[1][14], "quantity strings stay verbatim")
	require.Equal(t, "scan_0099", rows[2][0], "unnumbered records appear under the fallback key")

	items, err := f.GetRows("Items")
	require.NoError(t, err)
	require.Len(t, items, 3, "header plus one row per line item")
	require.Equal(t, itemHeaders, items[0][:len(itemHeaders)])
	require.Equal(t, "SALMON FILLET", items[1][3])
	require.Equal(t, "INV-001", items[2][0])
}

func TestWorkbookEmpty(t *testing.T) {
	b, err := NewService(nil).Workbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Invoices")
	require.NoError(t, err)
	require.Len(t, rows, 1, "headers only")
}

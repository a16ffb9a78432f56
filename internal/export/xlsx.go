// Package export renders a batch run's flattened rows as an XLSX workbook,
// one sheet for invoice headers and one for line items.
package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/flatten"
)

type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

var invoiceHeaders = []string{
	"Invoice Number", "Date", "Due Date", "Currency", "Customer ID",
	"PO Number", "Sales Order", "SAP Number", "Container", "Incoterms",
	"Messers", "Origin", "Payment Terms", "Total Cases", "Total Quantity",
	"Total Value", "Source File",
}

var itemHeaders = []string{
	"Invoice Number", "Cases", "Code", "Goods Descriptions", "Quantity",
	"Unit Value", "Item Total Value",
}

// Workbook returns XLSX bytes for the given row sets.
func (s *Service) Workbook(rowSets []flatten.RowSet) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const invSheet = "Invoices"
	const itemSheet = "Items"

	// excelize starts with "Sheet1"; rename it and add the second sheet.
	if err := f.SetSheetName("Sheet1", invSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemSheet); err != nil {
		return nil, err
	}

	writeRow(f, invSheet, 1, toAny(invoiceHeaders))
	writeRow(f, itemSheet, 1, toAny(itemHeaders))

	invRow, itemRow := 2, 2
	items := 0
	for _, rs := range rowSets {
		inv := rs.Invoice
		writeRow(f, invSheet, invRow, []any{
			inv.InvoiceNumber,
			deref(inv.Date), deref(inv.DueDate), deref(inv.Currency), deref(inv.CustomerID),
			deref(inv.PONumber), deref(inv.SalesOrder), deref(inv.SAPNumber), deref(inv.Container),
			deref(inv.Incoterms), deref(inv.Messers), deref(inv.Origin), deref(inv.PaymentTerms),
			inv.TotalCases, inv.TotalQuantity, inv.TotalValue, inv.SourceFilename,
		})
		invRow++

		for _, it := range rs.Items {
			row := []any{
				it.InvoiceNumber, it.Cases, it.Code, it.GoodsDescriptions, it.Quantity, it.UnitValue,
			}
			if it.ItemTotalValue != nil {
				row = append(row, *it.ItemTotalValue)
			} else {
				row = append(row, "")
			}
			writeRow(f, itemSheet, itemRow, row)
			itemRow++
			items++
		}
	}

	_ = f.SetColWidth(invSheet, "A", "A", 18)
	_ = f.SetColWidth(invSheet, "B", "M", 14)
	_ = f.SetColWidth(invSheet, "N", "Q", 16)
	_ = f.SetColWidth(itemSheet, "A", "A", 18)
	_ = f.SetColWidth(itemSheet, "D", "D", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"invoices", len(rowSets),
		"items", items,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/flatten"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

func strPtr(s string) *string { return &s }

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	s, err := Open(context.Background(), common.StoreConfig{DSN: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

func sampleRowSet(itemCount int) flatten.RowSet {
	rs := flatten.RowSet{
		Invoice: flatten.InvoiceRow{
			InvoiceNumber:  "INV-001",
			Date:           strPtr("12/01/2024"),
			Currency:       strPtr("USD"),
			SaleConditions: []string{"FOB Miami"},
			TotalCases:     15,
			TotalQuantity:  "5,495.60 LB",
			TotalValue:     29452.36,
			SourceFilename: "scan_0042.pdf",
		},
		Addresses: []flatten.AddressRow{
			{InvoiceNumber: "INV-001", Role: flatten.RoleCompany, City: strPtr("Puerto Montt")},
			{InvoiceNumber: "INV-001", Role: flatten.RoleCustomer, City: strPtr("Seattle")},
		},
	}
	for i := 0; i < itemCount; i++ {
		rs.Items = append(rs.Items, flatten.ItemRow{
			InvoiceNumber:     "INV-001",
			Cases:             i + 1,
			Code:              "A1",
			GoodsDescriptions: "SALMON FILLET",
			Quantity:          "100 LB",
			UnitValue:         5.6,
		})
	}
	return rs
}

func TestUpsertInvoice(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertInvoice(ctx, sampleRowSet(3)))

	n, err := s.CountRows(ctx, "invoices", "INV-001")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = s.CountRows(ctx, "addresses", "INV-001")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = s.CountRows(ctx, "items", "INV-001")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestUpsertInvoiceReplacesOnRerun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertInvoice(ctx, sampleRowSet(3)))

	// Reprocessing the same invoice with a different extraction must replace,
	// never duplicate or accumulate.
	rerun := sampleRowSet(2)
	rerun.Invoice.Currency = strPtr("EUR")
	rerun.Addresses = rerun.Addresses[:1]
	require.NoError(t, s.UpsertInvoice(ctx, rerun))

	n, err := s.CountRows(ctx, "invoices", "INV-001")
	require.NoError(t, err)
	require.Equal(t, 1, n, "header row upserted, not duplicated")

	n, err = s.CountRows(ctx, "items", "INV-001")
	require.NoError(t, err)
	require.Equal(t, 2, n, "stale item rows do not accumulate")

	n, err = s.CountRows(ctx, "addresses", "INV-001")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var currency string
	require.NoError(t, s.db.QueryRowContext(ctx,
		"SELECT currency FROM invoices WHERE invoice_number = ?", "INV-001").Scan(&currency))
	require.Equal(t, "EUR", currency)
}

func TestUpsertInvoiceStoresConditionsAsJSON(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rs := sampleRowSet(0)
	rs.Invoice.SaleConditions = []string{"FOB Miami", "NET 30 DAYS"}
	require.NoError(t, s.UpsertInvoice(ctx, rs))

	var conds string
	require.NoError(t, s.db.QueryRowContext(ctx,
		"SELECT sale_conditions FROM invoices WHERE invoice_number = ?", "INV-001").Scan(&conds))
	require.JSONEq(t, `["FOB Miami","NET 30 DAYS"]`, conds)

	rs.Invoice.SaleConditions = nil
	require.NoError(t, s.UpsertInvoice(ctx, rs))
	require.NoError(t, s.db.QueryRowContext(ctx,
		"SELECT sale_conditions FROM invoices WHERE invoice_number = ?", "INV-001").Scan(&conds))
	require.Equal(t, "[]", conds, "nil conditions persist as an empty list")
}

func TestCountRowsRejectsUnknownTable(t *testing.T) {
	s := openTestStore(t)
	_, err := s.CountRows(context.Background(), "users; DROP TABLE invoices", "INV-001")
	require.Error(t, err)
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	num := "INV-001"
	inv := schema.Invoice{
		InvoiceNumber:  &num,
		SaleConditions: []string{},
		TotalQuantity:  "1 KG",
	}

	path, err := WriteJSON(filepath.Join(dir, "out"), "scan_0042", inv)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "out", "scan_0042.json"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"invoice_number": "INV-001"`)
	require.Contains(t, string(b), `"date": null`, "absent optionals serialize as explicit nulls")

	back, err := schema.DecodeInvoice(b)
	require.NoError(t, err)
	require.Equal(t, inv, back)
}

package flatten

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

func strPtr(s string) *string { return &s }

func sampleInvoice() schema.Invoice {
	itemTotal := 25287.36
	return schema.Invoice{
		InvoiceNumber: strPtr("INV-001"),
		Date:          strPtr("12/01/2024"),
		Currency:      strPtr("USD"),
		Messers:       strPtr("Pacific Seafood Co."),
		CompanyAddress: &schema.Address{
			Street:  strPtr("Av. Cardonal S/N"),
			City:    strPtr("Puerto Montt"),
			Country: strPtr("Chile"),
		},
		CustomerAddress: &schema.Address{
			Street:  strPtr("999 Lake Drive"),
			City:    strPtr("Seattle"),
			Country: strPtr("USA"),
		},
		SaleConditions: []string{"FOB Miami", "NET 30 DAYS"},
		Items: []schema.Item{
			{Cases: 10, Code: "A1", GoodsDescriptions: "FRESH ATLANTIC SALMON FILLET", Quantity: "4,515.60 LB", UnitValue: 5.6, ItemTotalValue: &itemTotal},
			{Cases: 5, Code: "B2", GoodsDescriptions: "FROZEN TROUT PORTIONS", Quantity: "980.00 LB", UnitValue: 4.25},
		},
		TotalCases:    15,
		TotalQuantity: "5,495.60 LB",
		TotalValue:    29452.36,
	}
}

func TestFlatten(t *testing.T) {
	rs := Flatten(sampleInvoice(), "/in/scan_0042.pdf")

	require.Equal(t, "INV-001", rs.Key())
	require.Equal(t, "scan_0042.pdf", rs.Invoice.SourceFilename)
	require.Equal(t, 15, rs.Invoice.TotalCases)
	require.Equal(t, "5,495.60 LB", rs.Invoice.TotalQuantity)
	require.Nil(t, rs.Invoice.CustomerID)

	require.Len(t, rs.Addresses, 2)
	require.Equal(t, RoleCompany, rs.Addresses[0].Role)
	require.Equal(t, RoleCustomer, rs.Addresses[1].Role)
	for _, a := range rs.Addresses {
		require.Equal(t, "INV-001", a.InvoiceNumber, "child rows share the invoice key")
	}

	require.Len(t, rs.Items, len(sampleInvoice().Items), "one row per line item")
	require.Equal(t, "FRESH ATLANTIC SALMON FILLET", rs.Items[0].GoodsDescriptions)
	require.NotNil(t, rs.Items[0].ItemTotalValue)
	require.Nil(t, rs.Items[1].ItemTotalValue)
}

func TestFlattenIsDeterministic(t *testing.T) {
	inv := sampleInvoice()
	a := Flatten(inv, "x.pdf")
	b := Flatten(inv, "x.pdf")
	require.Equal(t, a, b)
}

func TestFlattenFallbackKey(t *testing.T) {
	inv := sampleInvoice()
	inv.InvoiceNumber = nil
	rs := Flatten(inv, "/in/batch3/scan_0042.pdf")
	require.Equal(t, "scan_0042", rs.Key(), "base name without extension keys unnumbered records")
	require.Equal(t, "scan_0042", rs.Items[0].InvoiceNumber)

	inv.InvoiceNumber = strPtr("")
	rs = Flatten(inv, "a.pdf")
	require.Equal(t, "a", rs.Key(), "an empty invoice number falls back too")
}

func TestFlattenSkipsEmptyAddresses(t *testing.T) {
	inv := sampleInvoice()
	inv.CompanyAddress = nil
	inv.CustomerAddress = &schema.Address{City: strPtr("Seattle")}
	rs := Flatten(inv, "x.pdf")

	require.Len(t, rs.Addresses, 1)
	require.Equal(t, RoleCustomer, rs.Addresses[0].Role)

	inv.CustomerAddress = &schema.Address{}
	rs = Flatten(inv, "x.pdf")
	require.Empty(t, rs.Addresses, "an all-nil address yields no row")
}

func TestFlattenEmptyItems(t *testing.T) {
	inv := sampleInvoice()
	inv.Items = nil
	rs := Flatten(inv, "x.pdf")
	require.Empty(t, rs.Items, "no placeholder rows for an empty item list")
}

// Package flatten decomposes a validated invoice into the relational row
// sets of the fixed persisted layout. Flattening is a pure function of the
// record: no hidden state, reproducible, and the items row count always
// equals the length of the invoice's item sequence.
package flatten

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

// Address roles. Exactly these two values appear in the addresses table.
const (
	RoleCompany  = "company"
	RoleCustomer = "customer"
)

// InvoiceRow is the invoices-table projection of an invoice header.
type InvoiceRow struct {
	InvoiceNumber  string
	Date           *string
	DueDate        *string
	Currency       *string
	CustomerID     *string
	PONumber       *string
	SalesOrder     *string
	SAPNumber      *string
	Container      *string
	Incoterms      *string
	Messers        *string
	Origin         *string
	PaymentTerms   *string
	SaleConditions []string
	TotalCases     int
	TotalQuantity  string
	TotalValue     float64
	SourceFilename string
}

// AddressRow is one role-tagged address foreign-keyed to its invoice.
type AddressRow struct {
	InvoiceNumber string
	Role          string
	Street        *string
	City          *string
	State         *string
	ZipCode       *string
	Country       *string
	Phone         *string
}

// ItemRow is one line item foreign-keyed to its invoice.
type ItemRow struct {
	InvoiceNumber     string
	Cases             int
	Code              string
	GoodsDescriptions string
	Quantity          string
	UnitValue         float64
	ItemTotalValue    *float64
}

// RowSet is the full relational decomposition of one invoice.
type RowSet struct {
	Invoice   InvoiceRow
	Addresses []AddressRow
	Items     []ItemRow
}

// Key returns the natural key the rows are bound to.
func (rs RowSet) Key() string { return rs.Invoice.InvoiceNumber }

// Flatten maps an invoice to its row sets. When the extraction found no
// invoice_number the source file's base name becomes the key — the record is
// never dropped. Absent addresses and empty item lists produce zero child
// rows rather than placeholder rows.
func Flatten(inv schema.Invoice, sourceFilename string) RowSet {
	key := FallbackKey(sourceFilename)
	if inv.InvoiceNumber != nil && *inv.InvoiceNumber != "" {
		key = *inv.InvoiceNumber
	}

	rs := RowSet{
		Invoice: InvoiceRow{
			InvoiceNumber:  key,
			Date:           inv.Date,
			DueDate:        inv.DueDate,
			Currency:       inv.Currency,
			CustomerID:     inv.CustomerID,
			PONumber:       inv.PONumber,
			SalesOrder:     inv.SalesOrder,
			SAPNumber:      inv.SAPNumber,
			Container:      inv.Container,
			Incoterms:      inv.Incoterms,
			Messers:        inv.Messers,
			Origin:         inv.Origin,
			PaymentTerms:   inv.PaymentTerms,
			SaleConditions: inv.SaleConditions,
			TotalCases:     inv.TotalCases,
			TotalQuantity:  inv.TotalQuantity,
			TotalValue:     inv.TotalValue,
			SourceFilename: filepath.Base(sourceFilename),
		},
	}

	if row, ok := addressRow(key, RoleCompany, inv.CompanyAddress); ok {
		rs.Addresses = append(rs.Addresses, row)
	}
	if row, ok := addressRow(key, RoleCustomer, inv.CustomerAddress); ok {
		rs.Addresses = append(rs.Addresses, row)
	}

	for _, it := range inv.Items {
		rs.Items = append(rs.Items, ItemRow{
			InvoiceNumber:     key,
			Cases:             it.Cases,
			Code:              it.Code,
			GoodsDescriptions: it.GoodsDescriptions,
			Quantity:          it.Quantity,
			UnitValue:         it.UnitValue,
			ItemTotalValue:    it.ItemTotalValue,
		})
	}

	return rs
}

// FallbackKey derives the persistence key for records whose extraction found
// no invoice number.
func FallbackKey(sourceFilename string) string {
	base := filepath.Base(sourceFilename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func addressRow(key, role string, a *schema.Address) (AddressRow, bool) {
	if a == nil {
		return AddressRow{}, false
	}
	if a.Street == nil && a.City == nil && a.State == nil && a.ZipCode == nil && a.Country == nil && a.Phone == nil {
		return AddressRow{}, false
	}
	return AddressRow{
		InvoiceNumber: key,
		Role:          role,
		Street:        a.Street,
		City:          a.City,
		State:         a.State,
		ZipCode:       a.ZipCode,
		Country:       a.Country,
		Phone:         a.Phone,
	}, true
}

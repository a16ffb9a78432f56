package schema

import "encoding/json"

// Invoice is the root extracted record for one billing document.
// Optional fields are pointers so an absent value is distinguishable from an
// empty one; they encode as explicit JSON null in the persisted layout.
// Values are stored verbatim as extracted — no reformatting, reparsing, or
// unit conversion happens anywhere in the pipeline.
type Invoice struct {
	InvoiceNumber   *string  `json:"invoice_number"`
	Date            *string  `json:"date"`
	DueDate         *string  `json:"due_date"`
	Currency        *string  `json:"currency"`
	CustomerID      *string  `json:"customer_id"`
	PONumber        *string  `json:"po_number"`
	SalesOrder      *string  `json:"sales_order"`
	SAPNumber       *string  `json:"sap_number"`
	Container       *string  `json:"container"`
	Incoterms       *string  `json:"incoterms"`
	Messers         *string  `json:"messers"`
	Origin          *string  `json:"origin"`
	PaymentTerms    *string  `json:"payment_terms"`
	CompanyAddress  *Address `json:"company_address"`
	CustomerAddress *Address `json:"customer_address"`
	SaleConditions  []string `json:"sale_conditions"`
	Items           []Item   `json:"items"`
	TotalCases      int      `json:"total_cases"`
	TotalQuantity   string   `json:"total_quantity"`
	TotalValue      float64  `json:"total_value"`
}

// Address is a postal address in a named role on the invoice
// (company vs customer). Free text, preserved exactly as sourced.
type Address struct {
	Street  *string `json:"street"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	ZipCode *string `json:"zip_code"`
	Country *string `json:"country"`
	Phone   *string `json:"phone"`
}

// Item is a single invoice line item. Quantity keeps the original unit
// formatting as a string.
type Item struct {
	Cases             int      `json:"cases"`
	Code              string   `json:"code"`
	GoodsDescriptions string   `json:"goods_descriptions"`
	Quantity          string   `json:"quantity"`
	UnitValue         float64  `json:"unit_value"`
	ItemTotalValue    *float64 `json:"item_total_value"`
}

// DecodeInvoice unmarshals a schema-validated JSON document into an Invoice.
func DecodeInvoice(raw []byte) (Invoice, error) {
	var inv Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// EncodeInvoice renders the canonical persisted JSON form (2-space indent,
// explicit nulls for absent optionals).
func EncodeInvoice(inv Invoice) ([]byte, error) {
	return json.MarshalIndent(inv, "", "  ")
}

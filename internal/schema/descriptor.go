package schema

// FieldType is the declared value type of a descriptor field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeDecimal FieldType = "decimal"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
)

// FieldSpec declares one field of the extraction contract: its name, type,
// required/optional status, and the natural-language guidance the backend
// consumes as part of the structured-output constraint.
//
// For TypeObject, Fields lists the members. For TypeArray, Elem is the
// element type and Fields lists the element members when Elem is TypeObject.
type FieldSpec struct {
	Name     string
	Type     FieldType
	Required bool
	Guidance string
	Elem     FieldType
	Fields   []FieldSpec
}

// Descriptor is the full extraction contract for one record shape.
// It is plain data: the backend adapter renders it into the structured-output
// request, and the validator checks responses against it. Changing a field's
// required status changes the contract shape and is a breaking change for
// persisted records.
type Descriptor struct {
	Name   string
	Fields []FieldSpec
}

// InvoiceDescriptor returns the invoice extraction contract. The aggregate
// totals and sale_conditions are required; everything else defaults to
// absent when not found in the source text.
func InvoiceDescriptor() Descriptor {
	return Descriptor{
		Name: "invoice",
		Fields: []FieldSpec{
			{Name: "invoice_number", Type: TypeString, Guidance: "Extract invoice identifier exactly as shown"},
			{Name: "date", Type: TypeString, Guidance: "Extract invoice date exactly as written on document"},
			{Name: "due_date", Type: TypeString, Guidance: "Extract payment due date exactly as written on document"},
			{Name: "currency", Type: TypeString, Guidance: "Extract currency code/name exactly as shown on invoice"},
			{Name: "customer_id", Type: TypeString, Guidance: "Extract customer identifier/account number exactly as written"},
			{Name: "po_number", Type: TypeString, Guidance: "Extract PO reference number exactly as shown"},
			{Name: "sales_order", Type: TypeString, Guidance: "Extract sales order reference exactly as written"},
			{Name: "sap_number", Type: TypeString, Guidance: "Extract SAP reference number exactly as shown"},
			{Name: "container", Type: TypeString, Guidance: "Extract shipping container number exactly as written if present"},
			{Name: "incoterms", Type: TypeString, Guidance: "Extract shipping terms exactly as written on invoice"},
			{Name: "messers", Type: TypeString, Guidance: "Extract customer's business name exactly as written"},
			{Name: "origin", Type: TypeString, Guidance: "Extract origin country/location exactly as shown"},
			{Name: "payment_terms", Type: TypeString, Guidance: "Extract payment terms exactly as written"},
			{Name: "company_address", Type: TypeObject, Guidance: "Extract the issuing company address exactly as shown on invoice", Fields: addressFields()},
			{Name: "customer_address", Type: TypeObject, Guidance: "Extract customer address exactly as shown on invoice", Fields: addressFields()},
			{Name: "sale_conditions", Type: TypeArray, Elem: TypeString, Required: true, Guidance: "Extract terms and conditions exactly as written on invoice"},
			{Name: "items", Type: TypeArray, Elem: TypeObject, Guidance: "Extract all invoice line items preserving original values", Fields: itemFields()},
			{Name: "total_cases", Type: TypeInteger, Required: true, Guidance: "Extract total number of cases exactly as shown"},
			{Name: "total_quantity", Type: TypeString, Required: true, Guidance: "Extract total quantity exactly as written, preserving format"},
			{Name: "total_value", Type: TypeDecimal, Required: true, Guidance: "Extract total monetary value exactly as shown"},
		},
	}
}

func addressFields() []FieldSpec {
	return []FieldSpec{
		{Name: "street", Type: TypeString, Guidance: "Extract complete street address line exactly as written on invoice, including any city/location information if present on same line. Do not split or modify the line in any way."},
		{Name: "city", Type: TypeString, Guidance: "Extract city name exactly as written on invoice. Do not extract city from street line."},
		{Name: "state", Type: TypeString, Guidance: "Extract state/province exactly as written on invoice"},
		{Name: "zip_code", Type: TypeString, Guidance: "Extract postal/ZIP code exactly as shown on invoice"},
		{Name: "country", Type: TypeString, Guidance: "Extract country name or code exactly as shown on invoice, do not standardize"},
		{Name: "phone", Type: TypeString, Guidance: "Extract phone number exactly as shown on invoice"},
	}
}

func itemFields() []FieldSpec {
	return []FieldSpec{
		{Name: "cases", Type: TypeInteger, Required: true, Guidance: "Extract the number of boxes/cases exactly as shown in the line item"},
		{Name: "code", Type: TypeString, Required: true, Guidance: "Extract product reference code/SKU exactly as shown on invoice"},
		{Name: "goods_descriptions", Type: TypeString, Required: true, Guidance: "Extract full product description exactly as written on invoice with no modifications"},
		{Name: "quantity", Type: TypeString, Required: true, Guidance: "Extract total weight/quantity exactly as written, preserving all decimals and units"},
		{Name: "unit_value", Type: TypeDecimal, Required: true, Guidance: "Extract price per unit exactly as shown on invoice"},
		{Name: "item_total_value", Type: TypeDecimal, Guidance: "Extract total monetary value exactly as shown on invoice"},
	}
}

// JSONSchema renders the descriptor as a JSON-Schema (draft 2020-12 subset)
// generic map. The same map is passed to the backend as the structured-output
// constraint and compiled locally to validate the response.
func (d Descriptor) JSONSchema() map[string]any {
	return objectSchema(d.Fields)
}

func objectSchema(fields []FieldSpec) map[string]any {
	props := make(map[string]any, len(fields))
	var required []string
	for _, f := range fields {
		props[f.Name] = f.propSchema()
		if f.Required {
			required = append(required, f.Name)
		}
	}
	s := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (f FieldSpec) propSchema() map[string]any {
	var s map[string]any
	switch f.Type {
	case TypeInteger:
		s = map[string]any{"type": "integer"}
	case TypeDecimal:
		s = map[string]any{"type": "number"}
	case TypeObject:
		s = objectSchema(f.Fields)
	case TypeArray:
		var elem map[string]any
		if f.Elem == TypeObject {
			elem = objectSchema(f.Fields)
		} else {
			elem = map[string]any{"type": string(f.Elem)}
		}
		s = map[string]any{"type": "array", "items": elem}
	default:
		s = map[string]any{"type": "string"}
	}
	if f.Guidance != "" {
		s["description"] = f.Guidance
	}
	return s
}

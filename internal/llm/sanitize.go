package llm

import (
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

// StripNulls normalizes a raw backend response against the descriptor before
// validation:
//   - explicit nulls on optional fields are removed, so "not found" decodes
//     as absent rather than empty
//   - unknown keys are dropped (the schema sets additionalProperties: false
//     but backends only honor that best-effort)
//   - optional sub-objects left empty after stripping are removed entirely
//
// Nulls on required fields are kept so validation fails loudly instead of
// silently coercing. Values themselves are never rewritten.
func StripNulls(raw []byte, d schema.Descriptor) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var dropped []string
	stripObject(m, d.Fields, "", &dropped)

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, dropped, nil
}

func stripObject(m map[string]any, fields []schema.FieldSpec, prefix string, dropped *[]string) {
	specs := make(map[string]schema.FieldSpec, len(fields))
	for _, f := range fields {
		specs[f.Name] = f
	}

	for k, v := range m {
		f, known := specs[k]
		if !known {
			delete(m, k)
			*dropped = append(*dropped, prefix+k+"(unknown)")
			continue
		}
		if v == nil {
			if !f.Required {
				delete(m, k)
				*dropped = append(*dropped, prefix+k+"(null)")
			}
			continue
		}
		switch f.Type {
		case schema.TypeObject:
			sub, ok := v.(map[string]any)
			if !ok {
				continue // leave for the validator to reject
			}
			stripObject(sub, f.Fields, prefix+k+".", dropped)
			if len(sub) == 0 && !f.Required {
				delete(m, k)
				*dropped = append(*dropped, prefix+k+"(empty)")
			}
		case schema.TypeArray:
			if f.Elem != schema.TypeObject {
				continue
			}
			list, ok := v.([]any)
			if !ok {
				continue
			}
			for i, el := range list {
				if sub, ok := el.(map[string]any); ok {
					stripObject(sub, f.Fields, fmt.Sprintf("%s%s[%d].", prefix, k, i), dropped)
				}
			}
		}
	}
}

package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

// Validate checks a backend response against the descriptor's JSON-Schema.
// Failures carry common.ErrValidation: the response shape is wrong and
// retrying without a prompt change will not help.
func Validate(d schema.Descriptor, data []byte) error {
	b, err := json.Marshal(d.JSONSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(d.Name+".json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile(d.Name + ".json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode response: %v: %w", err, common.ErrValidation)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("response does not match %s schema: %v: %w", d.Name, err, common.ErrValidation)
	}
	return nil
}

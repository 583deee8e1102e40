package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateAgainstSchema validates a decoded value against a schema expressed
// as a generic map.
func ValidateAgainstSchema(schemaMap map[string]any, value any) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(toPlain(value)); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}

// toPlain round-trips a value through JSON so the validator sees only the
// generic types it understands.
func toPlain(value any) any {
	b, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return value
	}
	return v
}

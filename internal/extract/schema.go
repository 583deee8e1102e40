package extract

// BuildStandardRecordSchema returns a JSON-Schema (draft 2020-12 subset) for
// one standard-mode record, as a generic map. The schema is deliberately
// lenient: numeric fields may arrive as numbers, strings, or null, and extra
// properties are allowed. It is used only to log drift in the service output,
// never to reject it.
func BuildStandardRecordSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"doc_type":        stringProp(),
			"date":            stringProp(),
			"id":              stringProp(),
			"name":            stringProp(),
			"description":     stringProp(),
			"code":            stringProp(),
			"unit":            stringProp(),
			"order_numbers":   orderNumbersProp(),
			"quantity_doc":    looseNumberProp(),
			"quantity_actual": looseNumberProp(),
			"unitprice":       looseNumberProp(),
			"totalprice":      looseNumberProp(),
		},
	}
}

func stringProp() map[string]any {
	return map[string]any{"type": []any{"string", "null"}}
}

// looseNumberProp accepts the three shapes the service is known to emit for
// amounts: JSON numbers, formatted strings, and null for blank columns.
func looseNumberProp() map[string]any {
	return map[string]any{"type": []any{"number", "string", "null"}}
}

// orderNumbersProp accepts a single code, a list of codes, or nothing.
func orderNumbersProp() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "null"},
			map[string]any{
				"type":  "array",
				"items": map[string]any{"type": []any{"string", "number"}},
			},
		},
	}
}

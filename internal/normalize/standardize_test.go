package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duclunn/form-extractor/internal/entity"
	"github.com/duclunn/form-extractor/internal/normalize"
)

func TestFormatUnit(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: "  CÁI  ", want: "Cái"},
		{in: "kg", want: "Kg"},
		{in: "CHIẾC", want: "Chiếc"},
		{in: "", want: ""},
		{in: nil, want: ""},
		{in: "   ", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalize.FormatUnit(tt.in), "in=%q", tt.in)
	}
}

func TestStandardize(t *testing.T) {
	rows := []entity.Row{{Fields: map[string]any{
		entity.FieldDocType:        "EXPORT",
		entity.FieldUnit:           "cái",
		entity.FieldQuantityActual: float64(3),
		entity.FieldUnitPrice:      "1.250.000",
		entity.FieldTotalPrice:     float64(3750000),
		entity.FieldDescription:    "MBA 320KVA - 22/0,4KV",
		"extra_field":              "kept",
	}}}

	got := normalize.Standardize(rows)
	require.Len(t, got, 1)

	f := got[0].Fields
	assert.Equal(t, "Phiếu xuất kho", f[entity.FieldDocType])
	assert.Equal(t, "Cái", f[entity.FieldUnit])
	assert.Equal(t, "3", f[entity.FieldQuantityActual])
	assert.Equal(t, "1.250.000", f[entity.FieldUnitPrice])
	assert.Equal(t, "3.750.000", f[entity.FieldTotalPrice])
	assert.Equal(t, "MBA 320KVA - 22/0,4KV", f[entity.FieldDescription], "non-numeric fields untouched")
	assert.Equal(t, "kept", f["extra_field"], "unknown fields are never dropped")

	// input rows must not be mutated
	assert.Equal(t, "EXPORT", rows[0].Fields[entity.FieldDocType])
}

func TestStandardizeDocTypeTranslation(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: "Invoice", want: "Hoá đơn"},
		{in: "import", want: "Phiếu nhập kho"},
		{in: "EXPORT", want: "Phiếu xuất kho"},
		{in: "Biên bản", want: "Biên bản"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		rows := normalize.Standardize([]entity.Row{{Fields: map[string]any{entity.FieldDocType: tt.in}}})
		assert.Equal(t, tt.want, rows[0].Fields[entity.FieldDocType], "in=%q", tt.in)
	}
}

func TestStandardizeMalformedInput(t *testing.T) {
	rows := normalize.Standardize([]entity.Row{{Fields: map[string]any{
		entity.FieldQuantityActual: "n/a",
		entity.FieldUnitPrice:      nil,
	}}})

	f := rows[0].Fields
	assert.Equal(t, "0", f[entity.FieldQuantityActual])
	assert.Equal(t, "0", f[entity.FieldUnitPrice])
	assert.Equal(t, "0", f[entity.FieldTotalPrice], "absent numeric fields default to zero")
	assert.Equal(t, "", f[entity.FieldUnit])
}

// Standardizing twice must be a no-op: formatted numbers and capitalized
// units survive a second pass unchanged.
func TestStandardizeIdempotent(t *testing.T) {
	rows := []entity.Row{{Fields: map[string]any{
		entity.FieldDocType:        "Export",
		entity.FieldUnit:           "  LÍT ",
		entity.FieldQuantityDoc:    "10",
		entity.FieldQuantityActual: float64(10),
		entity.FieldUnitPrice:      "2.500.000,5",
		entity.FieldTotalPrice:     "25.000.005",
	}}}

	once := normalize.Standardize(rows)
	twice := normalize.Standardize(once)
	assert.Equal(t, once[0].Fields, twice[0].Fields)
}

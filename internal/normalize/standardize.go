package normalize

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/duclunn/form-extractor/constants"
	"github.com/duclunn/form-extractor/internal/entity"
)

// Standardize applies the per-field cleanup rules of the standard schema to
// every row: numeric fields become locale-formatted display strings, the unit
// is capitalized, and the document type is translated onto the canonical
// label set. The transformation is pure and one-to-one, never drops a field,
// and never fails; malformed values fall back to 0 or the empty string.
// Running it twice leaves the rows unchanged.
func Standardize(rows []entity.Row) []entity.Row {
	out := make([]entity.Row, 0, len(rows))
	for _, r := range rows {
		c := r.Clone()

		for _, key := range entity.NumericFields {
			c.Fields[key] = FormatLocale(ParseLoose(c.Fields[key]))
		}

		c.Fields[entity.FieldUnit] = FormatUnit(c.Fields[entity.FieldUnit])

		if dt, ok := c.Fields[entity.FieldDocType]; ok {
			c.Fields[entity.FieldDocType] = constants.TranslateDocType(asString(dt))
		}

		out = append(out, c)
	}
	return out
}

// FormatUnit trims, lower-cases, then capitalizes only the first rune of a
// unit of measure ("  CÁI  " -> "Cái"). Empty or nil input yields "".
func FormatUnit(v any) string {
	s := strings.TrimSpace(asString(v))
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

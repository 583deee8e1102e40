package normalize

import (
	"strconv"
	"strings"

	"github.com/duclunn/form-extractor/internal/entity"
)

// Expand turns one raw extracted record into table rows. Source documents
// often list several order codes against a single aggregate quantity/price
// line; when the stated quantity equals the number of codes the aggregate can
// be split safely into one row per code. When the counts disagree, splitting
// would fabricate structure the document does not state, so the quantity and
// total are left as extracted for the user to resolve in the grid.
//
// Every returned row is a fresh copy carrying the source filename and a
// back-reference to the originating upload; the input record is never
// mutated.
func Expand(fields map[string]any, file *entity.UploadedFile) []entity.Row {
	orderNums, isList := stringList(fields[entity.FieldOrderNumbers])

	if !isList || len(orderNums) == 0 {
		f := cloneFields(fields)
		if isList {
			// empty array, render as an empty display string
			f[entity.FieldOrderNumbers] = strings.Join(orderNums, ", ")
		}
		f[entity.FieldSourceFile] = file.Name
		return []entity.Row{{Fields: f, File: file}}
	}

	actual, hasActual := quantityValue(fields[entity.FieldQuantityActual])
	docQty, hasDoc := quantityValue(fields[entity.FieldQuantityDoc])

	targetQty, hasTarget := actual, hasActual
	if !hasTarget {
		targetQty, hasTarget = docQty, hasDoc
	}
	isCountMatch := hasTarget && targetQty == float64(len(orderNums))

	rows := make([]entity.Row, 0, len(orderNums))
	for _, code := range orderNums {
		f := cloneFields(fields)
		f[entity.FieldOrderNumbers] = code
		f[entity.FieldSourceFile] = file.Name

		if isCountMatch {
			// one unit per exploded row
			if hasActual {
				f[entity.FieldQuantityActual] = "1"
			}
			if hasDoc {
				f[entity.FieldQuantityDoc] = "1"
			}
			if up := fields[entity.FieldUnitPrice]; !emptyValue(up) {
				f[entity.FieldTotalPrice] = up
			}
		}

		rows = append(rows, entity.Row{Fields: f, File: file})
	}
	return rows
}

// stringList reports whether v is an array value and, if so, returns its
// elements rendered as strings.
func stringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, asString(e))
		}
		return out, true
	default:
		return nil, false
	}
}

// quantityValue parses a quantity field strictly: JSON numbers and plain
// decimal strings count, anything else means the field is absent for the
// purposes of the count-match check.
func quantityValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func emptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case float64:
		return t == 0
	default:
		return false
	}
}

func cloneFields(fields map[string]any) map[string]any {
	c := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		c[k] = v
	}
	return c
}

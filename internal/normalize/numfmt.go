package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseLoose converts a loosely formatted numeric value into a float64.
// Numbers come back as-is, nil and empty strings become 0, and strings are
// parsed under the Vietnamese separator convention:
//
//   - "." together with "," means "." groups thousands and "," is the
//     decimal separator ("1.234,56" -> 1234.56)
//   - "." alone always groups thousands ("1.234.567" -> 1234567)
//   - "," alone is the decimal separator ("12,5" -> 12.5)
//
// A single "." with no "," is deliberately NOT a decimal point, so a genuine
// decimal like "3.5" parses as 35. Anything unparseable yields 0; ParseLoose
// never fails.
func ParseLoose(v any) float64 {
	var s string
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		s = t
	default:
		s = fmt.Sprint(t)
	}

	var clean strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			clean.WriteRune(r)
		}
	}
	s = clean.String()
	if s == "" {
		return 0
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case hasDot:
		s = strings.ReplaceAll(s, ".", "")
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

// FormatLocale renders a numeric value with "." grouping thousands and ","
// as the decimal separator, matching the grammar ParseLoose accepts so the
// two round-trip on canonical numbers. Strings that already carry either
// separator are passed through unchanged, which makes formatting an
// already-formatted cell a no-op.
func FormatLocale(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		if t == "" {
			return ""
		}
		if strings.ContainsAny(t, ".,") {
			return t
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return t
		}
		return formatFloat(f)
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return formatFloat(float64(t))
	case int64:
		return formatFloat(float64(t))
	default:
		return fmt.Sprint(t)
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}

	neg := f < 0
	s := strconv.FormatFloat(math.Abs(f), 'f', -1, 64)

	intPart, fracPart, _ := strings.Cut(s, ".")
	var grouped strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(d)
	}

	out := grouped.String()
	if fracPart != "" {
		out += "," + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

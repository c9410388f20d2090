// Package listview implements the list page data pipeline shared by every CRM
// collection: quick filter, free-text search, column search, advanced
// include/exclude rules, stable sorting, pagination, column visibility,
// selection and saved views.
package listview

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Row is one record of a collection keyed by field name. The pipeline never
// mutates rows it receives.
type Row map[string]any

// Stringify renders a field value the way filters compare it. nil renders as
// the empty string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return ""
		}
		return Stringify(*t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Fold returns the case-folded form of s used for every comparison.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	// Casers keep state between calls so one is created per use.
	return cases.Fold().String(s)
}

func containsFolded(haystack, foldedNeedle string) bool {
	if foldedNeedle == "" {
		return true
	}
	return strings.Contains(Fold(haystack), foldedNeedle)
}

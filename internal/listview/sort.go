package listview

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// Direction is the sort direction of the active sort.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func (d Direction) valid() bool {
	return d == Asc || d == Desc
}

// SortSpec selects the single active sort.
type SortSpec struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// CompareValues orders two field values. Strings compare case-folded, numbers
// numerically, times chronologically and booleans false before true. A nil
// value counts as the empty string against strings and as the lowest value
// otherwise. Values of different kinds compare by their folded string form.
func CompareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		if str, ok := b.(string); ok {
			return strings.Compare("", Fold(str))
		}
		return -1
	}
	if b == nil {
		if str, ok := a.(string); ok {
			return strings.Compare(Fold(str), "")
		}
		return 1
	}

	if x, ok := asFloat(a); ok {
		if y, ok := asFloat(b); ok {
			return cmp.Compare(x, y)
		}
	}
	if x, ok := asTime(a); ok {
		if y, ok := asTime(b); ok {
			return x.Compare(y)
		}
	}
	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(Fold(Stringify(a)), Fold(Stringify(b)))
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	default:
		return time.Time{}, false
	}
}

// Compare orders two rows by spec. Descending order is the negation of the
// ascending comparison.
func (s *Schema) Compare(a, b Row, spec SortSpec) int {
	if spec.Key == "" {
		return 0
	}
	c := CompareValues(s.Value(a, spec.Key), s.Value(b, spec.Key))
	if spec.Direction == Desc {
		return -c
	}
	return c
}

// Sort returns a stably sorted copy of rows. Rows with equal keys keep their
// input order in both directions.
func (s *Schema) Sort(rows []Row, spec SortSpec) []Row {
	out := slices.Clone(rows)
	if spec.Key == "" || len(out) < 2 {
		return out
	}
	slices.SortStableFunc(out, func(a, b Row) int {
		return s.Compare(a, b, spec)
	})
	return out
}

package listview

import (
	"maps"
	"sort"
)

// Operator selects whether an advanced filter keeps or drops matching rows.
type Operator string

const (
	OperatorInclude Operator = "include"
	OperatorExclude Operator = "exclude"
)

// FilterRule is a per-column substring rule. A rule with an empty value is
// inert.
type FilterRule struct {
	Value    string   `json:"value"`
	Operator Operator `json:"operator"`
}

// Active reports whether the rule takes part in filtering.
func (r FilterRule) Active() bool {
	return r.Value != ""
}

func (r FilterRule) passes(value any) bool {
	match := containsFolded(Stringify(value), Fold(r.Value))
	return match == (r.Operator != OperatorExclude)
}

// Filters maps a column key to its advanced filter rule.
type Filters map[string]FilterRule

// Clone returns an independent copy.
func (f Filters) Clone() Filters {
	if f == nil {
		return Filters{}
	}
	return maps.Clone(f)
}

// Active keeps only the rules that take part in filtering.
func (f Filters) Active() Filters {
	out := make(Filters, len(f))
	for key, rule := range f {
		if rule.Active() {
			out[key] = rule
		}
	}
	return out
}

// Keys lists the rule keys in sorted order.
func (f Filters) Keys() []string {
	keys := make([]string, 0, len(f))
	for key := range f {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Query bundles every row-narrowing input of a list page.
type Query struct {
	QuickFilter    string            `json:"quick_filter"`
	SearchTerm     string            `json:"search_term"`
	ColumnSearches map[string]string `json:"column_searches,omitempty"`
	Advanced       Filters           `json:"advanced,omitempty"`
}

// Clone returns an independent copy.
func (q Query) Clone() Query {
	out := q
	out.ColumnSearches = maps.Clone(q.ColumnSearches)
	out.Advanced = q.Advanced.Clone()
	return out
}

// Equal compares the effective query, ignoring inert entries.
func (q Query) Equal(other Query) bool {
	if normalizeQuick(q.QuickFilter) != normalizeQuick(other.QuickFilter) {
		return false
	}
	if q.SearchTerm != other.SearchTerm {
		return false
	}
	if !maps.Equal(activeSearches(q.ColumnSearches), activeSearches(other.ColumnSearches)) {
		return false
	}
	return maps.Equal(q.Advanced.Active(), other.Advanced.Active())
}

func normalizeQuick(name string) string {
	if name == "" {
		return QuickFilterAll
	}
	return name
}

func activeSearches(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		if value != "" {
			out[key] = value
		}
	}
	return out
}

// Predicate compiles q into a row predicate. Needles are folded once so the
// returned function can be applied to every row of a recompute.
func (s *Schema) Predicate(q Query) func(Row) bool {
	var quick func(Row) bool
	if qf, ok := s.quickFilter(q.QuickFilter); ok && qf.Match != nil {
		quick = qf.Match
	}

	term := Fold(q.SearchTerm)
	fields := s.searchFields()

	type columnNeedle struct {
		key    string
		needle string
	}
	searches := make([]columnNeedle, 0, len(q.ColumnSearches))
	for key, value := range q.ColumnSearches {
		if value == "" {
			continue
		}
		searches = append(searches, columnNeedle{key: key, needle: Fold(value)})
	}

	advanced := q.Advanced.Active()
	ruleKeys := advanced.Keys()

	return func(row Row) bool {
		if quick != nil && !quick(row) {
			return false
		}
		if term != "" {
			found := false
			for _, field := range fields {
				if containsFolded(Stringify(s.Value(row, field)), term) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		for _, cs := range searches {
			if !containsFolded(Stringify(s.Value(row, cs.key)), cs.needle) {
				return false
			}
		}
		for _, key := range ruleKeys {
			if !advanced[key].passes(s.Value(row, key)) {
				return false
			}
		}
		return true
	}
}

// Matches reports whether row survives q.
func (s *Schema) Matches(row Row, q Query) bool {
	return s.Predicate(q)(row)
}

// Filter returns the rows that survive q, in their original order.
func (s *Schema) Filter(rows []Row, q Query) []Row {
	match := s.Predicate(q)
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if match(row) {
			out = append(out, row)
		}
	}
	return out
}

package listview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuickFilterKeepsOriginalOrder(t *testing.T) {
	schema := statusSchema()
	got := schema.Filter(statusRows(), Query{QuickFilter: "active_only"})
	assert.Equal(t, []any{1, 3}, ids(got))
}

func TestQuickFilterAllIsIdentity(t *testing.T) {
	schema := statusSchema()
	for _, name := range []string{"", QuickFilterAll} {
		got := schema.Filter(statusRows(), Query{QuickFilter: name})
		assert.Equal(t, []any{1, 2, 3}, ids(got), "quick filter %q", name)
	}
}

func TestAdvancedExcludeRule(t *testing.T) {
	schema := statusSchema()
	got := schema.Filter(statusRows(), Query{Advanced: Filters{
		"status": {Value: "INACTIVE", Operator: OperatorExclude},
	}})
	assert.Equal(t, []any{1, 3}, ids(got))

	// "INACTIVE" contains "active", so excluding ACTIVE drops every row.
	got = schema.Filter(statusRows(), Query{Advanced: Filters{
		"status": {Value: "ACTIVE", Operator: OperatorExclude},
	}})
	assert.Empty(t, got)
}

func TestAdvancedExcludeKeepsNonMatching(t *testing.T) {
	schema := statusSchema()
	rows := []Row{
		{"id": 1, "status": "ACTIVE"},
		{"id": 2, "status": "SUSPENDED"},
		{"id": 3, "status": "ACTIVE"},
	}
	got := schema.Filter(rows, Query{Advanced: Filters{
		"status": {Value: "ACTIVE", Operator: OperatorExclude},
	}})
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0]["id"])
}

func TestAdvancedIncludeIsSubstringMatch(t *testing.T) {
	schema := statusSchema()
	got := schema.Filter(statusRows(), Query{Advanced: Filters{
		"status": {Value: "active", Operator: OperatorInclude},
	}})
	assert.Equal(t, []any{1, 2, 3}, ids(got))

	got = schema.Filter(statusRows(), Query{Advanced: Filters{
		"status": {Value: "inact"},
	}})
	assert.Equal(t, []any{2}, ids(got))
}

func TestInertRulesAreIgnored(t *testing.T) {
	schema := statusSchema()
	got := schema.Filter(statusRows(), Query{
		ColumnSearches: map[string]string{"status": ""},
		Advanced:       Filters{"status": {Value: "", Operator: OperatorExclude}},
	})
	assert.Len(t, got, 3)
}

func TestSearchTermMatchesAnySearchField(t *testing.T) {
	schema := employeeSchema()
	rows := employeeRows()

	cases := map[string][]any{
		"":             {"e1", "e2", "e3", "e4"},
		"LOVE":         {"e1"},
		"ada lovelace": {"e1"},
		"example.com":  {"e1", "e2", "e3", "e4"},
		"grace ":       {"e3"},
		"hopper ":      {},
		" ":            {"e1", "e2", "e3"},
		"ACTIVE":       {},
	}
	for term, want := range cases {
		got := schema.Filter(rows, Query{SearchTerm: term})
		assert.Equal(t, want, ids(got), "search %q", term)
	}
}

func TestColumnSearchesAreAnded(t *testing.T) {
	schema := employeeSchema()
	got := schema.Filter(employeeRows(), Query{ColumnSearches: map[string]string{
		"status": "active",
		"email":  "g",
	}})
	assert.Equal(t, []any{"e3", "e4"}, ids(got))

	got = schema.Filter(employeeRows(), Query{ColumnSearches: map[string]string{
		"status": "inactive",
		"email":  "grace",
	}})
	assert.Empty(t, got)
}

func TestNullFieldsCompareAsEmpty(t *testing.T) {
	schema := employeeSchema()
	rows := employeeRows()

	got := schema.Filter(rows, Query{Advanced: Filters{"age": {Value: "7", Operator: OperatorExclude}}})
	assert.Equal(t, []any{"e1", "e2", "e3"}, ids(got))

	got = schema.Filter(rows, Query{ColumnSearches: map[string]string{"fullName": "edsger"}})
	assert.Equal(t, []any{"e4"}, ids(got))
}

func TestDerivedFieldConsistency(t *testing.T) {
	schema := employeeSchema()
	rows := employeeRows()
	needle := "alan turing"

	bySearch := schema.Filter(rows, Query{SearchTerm: needle})
	byColumn := schema.Filter(rows, Query{ColumnSearches: map[string]string{"fullName": needle}})
	byRule := schema.Filter(rows, Query{Advanced: Filters{"fullName": {Value: needle, Operator: OperatorInclude}}})

	assert.Equal(t, []any{"e2"}, ids(bySearch))
	assert.Equal(t, ids(bySearch), ids(byColumn))
	assert.Equal(t, ids(bySearch), ids(byRule))

	sorted := schema.Sort(rows, SortSpec{Key: "fullName", Direction: Asc})
	assert.Equal(t, []any{"e1", "e2", "e4", "e3"}, ids(sorted))
}

func TestFilterMonotonicity(t *testing.T) {
	schema := employeeSchema()
	rows := employeeRows()
	base := []Query{
		{},
		{QuickFilter: "active_only"},
		{SearchTerm: "a"},
		{ColumnSearches: map[string]string{"email": "e"}},
	}
	rules := []FilterRule{
		{Value: "a", Operator: OperatorInclude},
		{Value: "a", Operator: OperatorExclude},
		{Value: "zzz", Operator: OperatorInclude},
		{Value: "grace", Operator: OperatorExclude},
	}
	for _, q := range base {
		without := len(schema.Filter(rows, q))
		for _, key := range schema.ColumnKeys() {
			for _, rule := range rules {
				with := q.Clone()
				with.Advanced[key] = rule
				assert.LessOrEqual(t, len(schema.Filter(rows, with)), without, "rule %s=%+v on %+v", key, rule, q)
			}
		}
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	schema := employeeSchema()
	rows := employeeRows()
	before := ids(rows)
	_ = schema.Filter(rows, Query{SearchTerm: "a"})
	_ = schema.Sort(rows, SortSpec{Key: "age", Direction: Desc})
	assert.Equal(t, before, ids(rows))
	_, hasDerived := rows[0]["fullName"]
	assert.False(t, hasDerived)
}

func TestQueryEqualIgnoresInertEntries(t *testing.T) {
	a := Query{QuickFilter: "", Advanced: Filters{"status": {Value: ""}}}
	b := Query{QuickFilter: QuickFilterAll, ColumnSearches: map[string]string{"email": ""}}
	assert.True(t, a.Equal(b))

	b.SearchTerm = "x"
	assert.False(t, a.Equal(b))
}

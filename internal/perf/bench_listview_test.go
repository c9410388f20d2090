package perf

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/listview"
)

var departments = []string{"Sales", "Support", "Finance", "Engineering", "Marketing"}

func employeeRows(n int) []listview.Row {
	rows := make([]listview.Row, n)
	for i := range rows {
		status := "ACTIVE"
		if i%4 == 0 {
			status = "INACTIVE"
		}
		rows[i] = listview.Row{
			"id":         fmt.Sprintf("emp-%05d", i),
			"firstName":  fmt.Sprintf("First%d", n-i),
			"lastName":   fmt.Sprintf("Last%d", i%97),
			"email":      fmt.Sprintf("user%d@example.com", i),
			"department": departments[i%len(departments)],
			"status":     status,
			"createdAt":  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		}
	}
	return rows
}

func BenchmarkEmployeesFilterSortPage(b *testing.B) {
	schema := crm.Employees().Schema
	rows := employeeRows(10000)
	query := listview.Query{
		QuickFilter: "active_only",
		SearchTerm:  "last1",
		Advanced:    listview.Filters{"department": {Value: "Sales"}},
	}
	spec := listview.SortSpec{Key: "createdAt", Direction: listview.Desc}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		filtered := schema.Filter(rows, query)
		sorted := schema.Sort(filtered, spec)
		_ = listview.Paginate(sorted, 1, 25)
	}
}

func BenchmarkControllerSearchKeystroke(b *testing.B) {
	rows := employeeRows(10000)
	ctrl, err := listview.NewController(listview.ControllerConfig{
		Schema:  crm.Employees().Schema,
		Fetcher: listview.FetcherFunc(func(context.Context) ([]listview.Row, error) { return rows, nil }),
	})
	if err != nil {
		b.Fatalf("controller: %v", err)
	}
	if err := ctrl.Refresh(context.Background()); err != nil {
		b.Fatalf("refresh: %v", err)
	}
	terms := []string{"f", "fi", "fir", "firs", "first", "first1"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctrl.SetSearchTerm(terms[i%len(terms)])
	}
}

func TestRecomputeLatencyTarget(t *testing.T) {
	if testing.Short() {
		t.Skip("latency target skipped in short mode")
	}
	schema := crm.Employees().Schema
	rows := employeeRows(5000)
	spec := listview.SortSpec{Key: "fullName", Direction: listview.Asc}

	samples := make([]time.Duration, 0, 20)
	for i := 0; i < cap(samples); i++ {
		start := time.Now()
		filtered := schema.Filter(rows, listview.Query{SearchTerm: fmt.Sprintf("first%d", i)})
		_ = listview.Paginate(schema.Sort(filtered, spec), 1, 50)
		samples = append(samples, time.Since(start))
	}

	threshold := 500 * time.Millisecond
	if p95 := percentile95(samples); p95 > threshold {
		t.Fatalf("recompute latency regression: p95=%s threshold=%s", p95, threshold)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted))*0.95) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

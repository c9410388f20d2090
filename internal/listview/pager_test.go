package listview

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTotalPages(t *testing.T) {
	cases := []struct {
		count, perPage, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{25, 25, 1},
		{51, 50, 2},
		{5, 0, 1},
		{3, math.MaxInt, 1},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.count, tc.perPage); got != tc.want {
			t.Fatalf("TotalPages(%d, %d) = %d, want %d", tc.count, tc.perPage, got, tc.want)
		}
	}
}

func TestPaginateOutOfRangeIsEmpty(t *testing.T) {
	rows := numberedRows(25)
	for _, page := range []int{math.MinInt, -1, 0, 4, 100, math.MaxInt / 5, math.MaxInt} {
		got := Paginate(rows, page, 10)
		if got.Rows == nil || len(got.Rows) != 0 {
			t.Fatalf("page %d: expected empty non-nil rows, got %v", page, got.Rows)
		}
		if got.TotalPages != 3 {
			t.Fatalf("page %d: total pages = %d", page, got.TotalPages)
		}
	}
	last := Paginate(rows, 3, 10)
	if len(last.Rows) != 5 {
		t.Fatalf("last page has %d rows", len(last.Rows))
	}
}

func TestClampPage(t *testing.T) {
	if got := ClampPage(5, 3); got != 3 {
		t.Fatalf("ClampPage(5, 3) = %d", got)
	}
	if got := ClampPage(0, 3); got != 1 {
		t.Fatalf("ClampPage(0, 3) = %d", got)
	}
	if got := ClampPage(2, 0); got != 1 {
		t.Fatalf("ClampPage(2, 0) = %d", got)
	}
}

func TestPaginationCoverage(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 49, 50, 51, 137} {
		rows := numberedRows(n)
		for _, perPage := range PageSizes {
			var joined []Row
			total := TotalPages(n, perPage)
			for page := 1; page <= total; page++ {
				joined = append(joined, Paginate(rows, page, perPage).Rows...)
			}
			if diff := cmp.Diff(ids(rows), ids(joined)); diff != "" {
				t.Fatalf("n=%d perPage=%d pages do not cover rows (-want +got):\n%s", n, perPage, diff)
			}
		}
	}
}

func TestValidPageSize(t *testing.T) {
	for _, n := range PageSizes {
		if !ValidPageSize(n) {
			t.Fatalf("page size %d rejected", n)
		}
	}
	for _, n := range []int{0, 5, 100} {
		if ValidPageSize(n) {
			t.Fatalf("page size %d accepted", n)
		}
	}
}

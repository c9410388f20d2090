package listview

import (
	"errors"
	"slices"
)

// DefaultPageSize is used when a schema does not pick one.
const DefaultPageSize = 10

// PageSizes lists the page sizes a list page offers.
var PageSizes = []int{10, 25, 50}

// ErrInvalidPageSize is returned for page sizes outside PageSizes.
var ErrInvalidPageSize = errors.New("listview: invalid page size")

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	return slices.Contains(PageSizes, n)
}

// TotalPages is ceil(count/perPage) with a floor of one page, so an empty
// result still has a page to show.
func TotalPages(count, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	if count <= 0 {
		return 1
	}
	return (count-1)/perPage + 1
}

// ClampPage forces page into [1, totalPages].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Page is one slice of a filtered and sorted sequence.
type Page struct {
	Rows       []Row
	TotalPages int
}

// Paginate slices rows for page. An out-of-range page yields no rows rather
// than an error; callers clamp on their next recompute.
func Paginate(rows []Row, page, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	total := TotalPages(len(rows), perPage)
	if page < 1 || page > total {
		return Page{Rows: []Row{}, TotalPages: total}
	}
	start := (page - 1) * perPage
	if start >= len(rows) {
		return Page{Rows: []Row{}, TotalPages: total}
	}
	end := min(start+perPage, len(rows))
	return Page{Rows: slices.Clone(rows[start:end]), TotalPages: total}
}

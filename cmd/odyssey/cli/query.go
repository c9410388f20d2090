package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/odyssey-erp/odyssey-crm/internal/listview"
	"github.com/odyssey-erp/odyssey-crm/internal/remote"
)

// QueryOptions defines available flags for the query command.
type QueryOptions struct {
	SchemaPath   string
	DataPath     string
	QuickFilter  string
	Search       string
	ColumnSearch []string
	Filters      []string
	Sort         string
	Page         int
	ItemsPerPage int
	Columns      []string
	JSONOutput   bool
	Stdout       io.Writer
	Stderr       io.Writer
}

// QuerySummary describes the JSON response of the query command.
type QuerySummary struct {
	Entity     string         `json:"entity"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	TotalCount int            `json:"total_count"`
	RawCount   int            `json:"raw_count"`
	Columns    []string       `json:"columns"`
	Rows       []listview.Row `json:"rows"`
}

// QueryCommand runs the list pipeline over a local JSON collection and prints
// the requested page. Exit codes: 0 ok, 1 usage or input error, 10 no rows
// matched.
func QueryCommand(ctx context.Context, opts QueryOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	fail := func(format string, args ...any) int {
		_, _ = fmt.Fprintf(opts.Stderr, "query: "+format+"\n", args...)
		return 1
	}
	if opts.SchemaPath == "" || opts.DataPath == "" {
		return fail("--schema and --data are required")
	}
	schema, err := listview.LoadSchemaFile(opts.SchemaPath)
	if err != nil {
		return fail("%v", err)
	}
	ctrl, err := listview.NewController(listview.ControllerConfig{
		Schema:  schema,
		Fetcher: fileFetcher(opts.DataPath),
	})
	if err != nil {
		return fail("%v", err)
	}
	if err := ctrl.Refresh(ctx); err != nil {
		return fail("%v", err)
	}
	if err := applyQuery(ctrl, opts); err != nil {
		return fail("%v", err)
	}

	view := ctrl.View()
	summary := QuerySummary{
		Entity:     view.Entity,
		Page:       view.CurrentPage,
		TotalPages: view.TotalPages,
		TotalCount: view.TotalCount,
		RawCount:   view.RawCount,
		Columns:    make([]string, len(view.Columns)),
		Rows:       view.PageRows,
	}
	for i, col := range view.Columns {
		summary.Columns[i] = col.Key
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			return fail("encode json: %v", err)
		}
	} else {
		renderQueryHuman(opts.Stdout, view)
	}
	if view.TotalCount == 0 {
		return 10
	}
	return 0
}

func applyQuery(ctrl *listview.Controller, opts QueryOptions) error {
	if opts.QuickFilter != "" {
		if err := ctrl.SetQuickFilter(opts.QuickFilter); err != nil {
			return err
		}
	}
	if opts.Search != "" {
		ctrl.SetSearchTerm(opts.Search)
	}
	for _, raw := range opts.ColumnSearch {
		key, text, ok := strings.Cut(raw, "=")
		if !ok {
			return fmt.Errorf("column search %q: expected column=text", raw)
		}
		if err := ctrl.SetColumnSearch(strings.TrimSpace(key), text); err != nil {
			return err
		}
	}
	if len(opts.Filters) > 0 {
		filters, err := ParseFilters(opts.Filters)
		if err != nil {
			return err
		}
		if err := ctrl.SetAdvancedFilters(filters); err != nil {
			return err
		}
	}
	if opts.Sort != "" {
		key, dir, _ := strings.Cut(opts.Sort, ":")
		if err := ctrl.SetSort(strings.TrimSpace(key), listview.Direction(strings.ToLower(strings.TrimSpace(dir)))); err != nil {
			return err
		}
	}
	if len(opts.Columns) > 0 {
		if err := ctrl.SetVisibleColumns(opts.Columns); err != nil {
			return err
		}
	}
	if opts.ItemsPerPage > 0 {
		if err := ctrl.SetItemsPerPage(opts.ItemsPerPage); err != nil {
			return err
		}
	}
	if opts.Page > 0 {
		ctrl.SetPage(opts.Page)
	}
	return nil
}

// ParseFilters reads advanced filter flags. "column=value" includes matching
// rows and "column!=value" excludes them.
func ParseFilters(raw []string) (listview.Filters, error) {
	filters := make(listview.Filters, len(raw))
	for _, item := range raw {
		op := listview.OperatorInclude
		key, value, ok := strings.Cut(item, "!=")
		if ok {
			op = listview.OperatorExclude
		} else if key, value, ok = strings.Cut(item, "="); !ok {
			return nil, fmt.Errorf("filter %q: expected column=value or column!=value", item)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("filter %q: column required", item)
		}
		filters[key] = listview.FilterRule{Value: value, Operator: op}
	}
	return filters, nil
}

func fileFetcher(path string) listview.Fetcher {
	return listview.FetcherFunc(func(context.Context) ([]listview.Row, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return remote.DecodeRows(f)
	})
}

func renderQueryHuman(out io.Writer, view listview.ViewModel) {
	_, _ = fmt.Fprintf(out, "%s: %d of %d rows, page %d/%d\n", view.Entity, view.TotalCount, view.RawCount, view.CurrentPage, view.TotalPages)
	if len(view.PageRows) == 0 {
		_, _ = fmt.Fprintln(out, "No rows match.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	headers := make([]string, len(view.Columns))
	for i, col := range view.Columns {
		headers[i] = strings.ToUpper(col.Label)
	}
	_, _ = fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range view.PageRows {
		cells := make([]string, len(view.Columns))
		for i, col := range view.Columns {
			cells[i] = listview.Stringify(row[col.Key])
		}
		_, _ = fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
}

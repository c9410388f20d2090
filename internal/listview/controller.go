package listview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
)

// State is the lifecycle position of a controller.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
)

var (
	ErrNoFetcher          = errors.New("listview: fetcher not configured")
	ErrNoDeleter          = errors.New("listview: deleter not configured")
	ErrNoViewStore        = errors.New("listview: saved view store not configured")
	ErrNothingSelected    = errors.New("listview: no rows selected")
	ErrUnknownColumn      = errors.New("listview: unknown column")
	ErrUnknownQuickFilter = errors.New("listview: unknown quick filter")
	ErrInvalidSortOrder   = errors.New("listview: invalid sort direction")
	ErrInvalidOperator    = errors.New("listview: invalid filter operator")
)

// ControllerConfig collects the dependencies of a Controller.
type ControllerConfig struct {
	Schema  *Schema
	Fetcher Fetcher
	Deleter Deleter
	Views   ViewStore
	Logger  *slog.Logger
	Metrics Recorder
	Clock   func() time.Time
}

// Controller owns the state of one list page and recomputes the rendered view
// whenever an input changes. It is meant for a single owner and is not safe
// for concurrent use.
type Controller struct {
	schema  *Schema
	fetcher Fetcher
	deleter Deleter
	views   ViewStore
	logger  *slog.Logger
	metrics Recorder
	clock   func() time.Time

	state       State
	pending     int
	loaded      bool
	loadedQuery Query
	loadedSort  SortSpec

	raw     []Row
	query   Query
	sort    SortSpec
	page    int
	perPage int
	columns *ColumnVisibility

	processed  []Row
	totalPages int

	selected map[string]struct{}
	requests map[RequestKind]Request
	notices  []Notice
}

// ViewModel is the single read model consumed by rendering.
type ViewModel struct {
	Entity          string            `json:"entity"`
	State           State             `json:"state"`
	PageRows        []Row             `json:"page_rows"`
	Columns         []Column          `json:"columns"`
	TotalPages      int               `json:"total_pages"`
	TotalCount      int               `json:"total_count"`
	RawCount        int               `json:"raw_count"`
	SelectedCount   int               `json:"selected_count"`
	CurrentPage     int               `json:"current_page"`
	ItemsPerPage    int               `json:"items_per_page"`
	QuickFilter     string            `json:"quick_filter"`
	SearchTerm      string            `json:"search_term"`
	ColumnSearches  map[string]string `json:"column_searches"`
	AdvancedFilters Filters           `json:"advanced_filters"`
	Sort            SortSpec          `json:"sort"`
}

// NewController builds a controller in the Idle state with the schema
// defaults applied.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if err := cfg.Schema.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		schema:   cfg.Schema,
		fetcher:  cfg.Fetcher,
		deleter:  cfg.Deleter,
		views:    cfg.Views,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		clock:    cfg.Clock,
		state:    StateIdle,
		selected: make(map[string]struct{}),
		requests: make(map[RequestKind]Request),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With(slog.String("entity", cfg.Schema.Entity))
	c.applyDefaults()
	c.recompute()
	return c, nil
}

// Schema returns the schema driving the controller.
func (c *Controller) Schema() *Schema { return c.schema }

// State reports the lifecycle state.
func (c *Controller) State() State { return c.state }

// Query returns a copy of the active row-narrowing inputs.
func (c *Controller) Query() Query { return c.query.Clone() }

// Sort returns the active sort.
func (c *Controller) Sort() SortSpec { return c.sort }

// Columns exposes the column visibility manager for edit sessions.
func (c *Controller) Columns() *ColumnVisibility { return c.columns }

// SetQuickFilter selects a canned quick filter or a saved view by id. A saved
// view brings its filters in as the advanced filters; leaving a saved view for
// a canned filter clears them again.
func (c *Controller) SetQuickFilter(name string) error {
	name = normalizeQuick(name)
	if view, ok := c.savedView(name); ok {
		c.query.QuickFilter = view.ID
		c.query.Advanced = view.Filters.Clone()
		c.page = 1
		c.recompute()
		return nil
	}
	if name != QuickFilterAll {
		if _, ok := c.schema.quickFilter(name); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownQuickFilter, name)
		}
	}
	if _, wasView := c.savedView(c.query.QuickFilter); wasView {
		c.query.Advanced = Filters{}
	}
	c.query.QuickFilter = name
	c.page = 1
	c.recompute()
	return nil
}

// SetSearchTerm sets the free-text search.
func (c *Controller) SetSearchTerm(text string) {
	c.query.SearchTerm = text
	c.page = 1
	c.recompute()
}

// SetColumnSearch sets or, with an empty text, clears the search on one
// column.
func (c *Controller) SetColumnSearch(key, text string) error {
	if _, ok := c.schema.Column(key); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, key)
	}
	if c.query.ColumnSearches == nil {
		c.query.ColumnSearches = make(map[string]string)
	}
	if text == "" {
		delete(c.query.ColumnSearches, key)
	} else {
		c.query.ColumnSearches[key] = text
	}
	c.page = 1
	c.recompute()
	return nil
}

// SetAdvancedFilters replaces the advanced filter rules. Rules default to
// include when no operator is given.
func (c *Controller) SetAdvancedFilters(rules Filters) error {
	next := make(Filters, len(rules))
	for key, rule := range rules {
		if _, ok := c.schema.Column(key); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, key)
		}
		switch rule.Operator {
		case "":
			rule.Operator = OperatorInclude
		case OperatorInclude, OperatorExclude:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidOperator, rule.Operator)
		}
		next[key] = rule
	}
	c.query.Advanced = next
	c.page = 1
	c.recompute()
	return nil
}

// SetSort selects the active sort. An empty key clears sorting.
func (c *Controller) SetSort(key string, direction Direction) error {
	if key == "" {
		c.sort = SortSpec{}
		c.recompute()
		return nil
	}
	if _, ok := c.schema.Column(key); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, key)
	}
	if direction == "" {
		direction = Asc
	}
	if !direction.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSortOrder, direction)
	}
	c.sort = SortSpec{Key: key, Direction: direction}
	c.recompute()
	return nil
}

// SetPage moves to page n, clamped into range by the recompute.
func (c *Controller) SetPage(n int) {
	c.page = n
	c.recompute()
}

// SetPageInput applies a page number typed by a user. Text that is not a
// page in range leaves the current page alone; it reports whether the page
// changed.
func (c *Controller) SetPageInput(text string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > c.totalPages {
		return false
	}
	c.SetPage(n)
	return true
}

// SetItemsPerPage changes the page size and always returns to the first page.
func (c *Controller) SetItemsPerPage(n int) error {
	if !ValidPageSize(n) {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, n)
	}
	c.perPage = n
	c.page = 1
	c.recompute()
	return nil
}

// SetVisibleColumns replaces the rendered columns.
func (c *Controller) SetVisibleColumns(keys []string) error {
	return c.columns.Set(keys)
}

// SavedViews lists the saved views of the page.
func (c *Controller) SavedViews() []SavedView {
	if c.views == nil {
		return nil
	}
	return c.views.List()
}

// SaveView stores the active advanced filters under name.
func (c *Controller) SaveView(ctx context.Context, name string) (SavedView, error) {
	if c.views == nil {
		return SavedView{}, ErrNoViewStore
	}
	req := c.begin(RequestSaveView)
	view, err := c.views.Save(ctx, name, c.query.Advanced.Active())
	if err != nil {
		c.settle(req, err)
		c.notify(NoticeError, "Failed to save view")
		return SavedView{}, err
	}
	c.settle(req, nil)
	c.notify(NoticeSuccess, fmt.Sprintf("View %q saved", view.Name))
	return view, nil
}

// DeleteView removes a saved view. When it is the active quick filter the page
// falls back to the "all" view with no advanced filters.
func (c *Controller) DeleteView(ctx context.Context, id string) error {
	if c.views == nil {
		return ErrNoViewStore
	}
	req := c.begin(RequestDeleteView)
	if err := c.views.Delete(ctx, id); err != nil {
		c.settle(req, err)
		c.notify(NoticeError, "Failed to delete view")
		return err
	}
	c.settle(req, nil)
	if c.query.QuickFilter == id {
		c.query.QuickFilter = QuickFilterAll
		c.query.Advanced = Filters{}
		c.page = 1
		c.recompute()
	}
	c.notify(NoticeSuccess, "View deleted")
	return nil
}

// ResetAll restores every filter, sort, search, column and page setting to
// the schema defaults in one step. The selection and notices are cleared too.
func (c *Controller) ResetAll() {
	c.applyDefaults()
	clear(c.selected)
	c.notices = nil
	c.recompute()
}

// Refresh reloads the raw collection. On failure the previous rows stay in
// place and a notice is raised.
func (c *Controller) Refresh(ctx context.Context) error {
	if c.fetcher == nil {
		return ErrNoFetcher
	}
	req := c.BeginRefresh()
	rows, err := c.fetcher.Fetch(ctx)
	return c.CompleteRefresh(req, rows, err)
}

// BeginRefresh marks a collection load as in flight.
func (c *Controller) BeginRefresh() Request {
	c.pending++
	c.state = StateLoading
	return c.begin(RequestRefresh)
}

// CompleteRefresh applies the outcome of a load started with BeginRefresh.
// When loads overlap, the one completing last provides the rows. The page
// returns to 1 only if the query or sort changed since the previous load.
func (c *Controller) CompleteRefresh(req Request, rows []Row, err error) error {
	if c.pending > 0 {
		c.pending--
	}
	if err != nil {
		c.settle(req, err)
		c.settleState()
		c.notify(NoticeError, fmt.Sprintf("Failed to load %s", c.schema.Entity))
		c.logger.Warn("listview refresh failed", slog.Any("error", err))
		return fmt.Errorf("listview: refresh %s: %w", c.schema.Entity, err)
	}

	c.raw = slices.Clone(rows)
	if c.loaded && (!c.query.Equal(c.loadedQuery) || c.sort != c.loadedSort) {
		c.page = 1
	}
	c.loaded = true
	c.loadedQuery = c.query.Clone()
	c.loadedSort = c.sort
	c.settle(req, nil)
	c.settleState()
	c.recompute()
	return nil
}

// BulkDelete deletes every selected row remotely. Success clears the
// selection and refetches; failure keeps the selection and the view.
func (c *Controller) BulkDelete(ctx context.Context) error {
	if c.deleter == nil {
		return ErrNoDeleter
	}
	ids := c.Selected()
	if len(ids) == 0 {
		return ErrNothingSelected
	}
	req := c.begin(RequestBulkDelete)
	if err := c.deleter.Delete(ctx, ids); err != nil {
		c.settle(req, err)
		c.notify(NoticeError, fmt.Sprintf("Failed to delete %d %s", len(ids), c.schema.Entity))
		c.logger.Warn("listview bulk delete failed", slog.Int("count", len(ids)), slog.Any("error", err))
		return fmt.Errorf("listview: bulk delete %s: %w", c.schema.Entity, err)
	}
	c.settle(req, nil)
	clear(c.selected)
	c.notify(NoticeSuccess, fmt.Sprintf("Deleted %d %s", len(ids), c.schema.Entity))
	if c.fetcher == nil {
		c.recompute()
		return nil
	}
	return c.Refresh(ctx)
}

// Select adds row identifiers to the selection.
func (c *Controller) Select(ids ...string) {
	for _, id := range ids {
		if id != "" {
			c.selected[id] = struct{}{}
		}
	}
}

// Deselect removes row identifiers from the selection.
func (c *Controller) Deselect(ids ...string) {
	for _, id := range ids {
		delete(c.selected, id)
	}
}

// ToggleSelectPage selects every row of the current page, or deselects them
// when all are already selected.
func (c *Controller) ToggleSelectPage() {
	ids := c.pageIDs()
	if len(ids) == 0 {
		return
	}
	all := true
	for _, id := range ids {
		if _, ok := c.selected[id]; !ok {
			all = false
			break
		}
	}
	if all {
		c.Deselect(ids...)
		return
	}
	c.Select(ids...)
}

// ClearSelection empties the selection.
func (c *Controller) ClearSelection() {
	clear(c.selected)
}

// IsSelected reports whether id is selected.
func (c *Controller) IsSelected(id string) bool {
	_, ok := c.selected[id]
	return ok
}

// Selected lists selected identifiers in sorted order. The selection spans
// pages and refreshes.
func (c *Controller) Selected() []string {
	ids := make([]string, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// LastRequest returns the most recent request of kind.
func (c *Controller) LastRequest(kind RequestKind) (Request, bool) {
	req, ok := c.requests[kind]
	return req, ok
}

// PopNotices drains pending notices.
func (c *Controller) PopNotices() []Notice {
	out := c.notices
	c.notices = nil
	return out
}

// View renders the current page.
func (c *Controller) View() ViewModel {
	visible := c.columns.Visible()
	columns := make([]Column, 0, len(visible))
	for _, key := range visible {
		if col, ok := c.schema.Column(key); ok {
			columns = append(columns, col)
		}
	}
	page := Paginate(c.processed, c.page, c.perPage)
	rows := make([]Row, len(page.Rows))
	for i, row := range page.Rows {
		rows[i] = c.schema.Project(row, visible)
	}
	searches := activeSearches(c.query.ColumnSearches)
	return ViewModel{
		Entity:          c.schema.Entity,
		State:           c.state,
		PageRows:        rows,
		Columns:         columns,
		TotalPages:      c.totalPages,
		TotalCount:      len(c.processed),
		RawCount:        len(c.raw),
		SelectedCount:   len(c.selected),
		CurrentPage:     c.page,
		ItemsPerPage:    c.perPage,
		QuickFilter:     c.query.QuickFilter,
		SearchTerm:      c.query.SearchTerm,
		ColumnSearches:  searches,
		AdvancedFilters: c.query.Advanced.Active(),
		Sort:            c.sort,
	}
}

// Rows returns the full filtered and sorted sequence across all pages.
func (c *Controller) Rows() []Row {
	return slices.Clone(c.processed)
}

func (c *Controller) applyDefaults() {
	c.query = Query{QuickFilter: QuickFilterAll, Advanced: Filters{}}
	c.sort = c.schema.DefaultSort
	c.perPage = c.schema.defaultPageSize()
	c.page = 1
	if c.columns == nil {
		c.columns = NewColumnVisibility(c.schema.ColumnKeys(), c.schema.defaultColumns())
		return
	}
	c.columns.Reset(c.schema.defaultColumns())
}

func (c *Controller) recompute() {
	start := time.Now()
	filtered := c.schema.Filter(c.raw, c.query)
	c.processed = c.schema.Sort(filtered, c.sort)
	c.totalPages = TotalPages(len(c.processed), c.perPage)
	c.page = ClampPage(c.page, c.totalPages)
	took := time.Since(start)
	if c.metrics != nil {
		c.metrics.ObserveRecompute(c.schema.Entity, len(c.processed), took)
	}
	c.logger.Debug("listview recompute",
		slog.Int("raw", len(c.raw)),
		slog.Int("matched", len(c.processed)),
		slog.Int("page", c.page),
		slog.Int("total_pages", c.totalPages),
		slog.Duration("took", took),
	)
}

func (c *Controller) pageIDs() []string {
	page := Paginate(c.processed, c.page, c.perPage)
	ids := make([]string, 0, len(page.Rows))
	for _, row := range page.Rows {
		if id := c.schema.ID(row); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Controller) savedView(id string) (SavedView, bool) {
	if c.views == nil || id == "" || id == QuickFilterAll {
		return SavedView{}, false
	}
	return c.views.Get(id)
}

func (c *Controller) settleState() {
	switch {
	case c.pending > 0:
		c.state = StateLoading
	case c.loaded:
		c.state = StateReady
	default:
		c.state = StateIdle
	}
}

func (c *Controller) begin(kind RequestKind) Request {
	req := newRequest(kind, c.now())
	c.requests[kind] = req
	return req
}

func (c *Controller) settle(req Request, err error) {
	if err != nil {
		c.requests[req.Kind] = req.fail(err, c.now())
		return
	}
	c.requests[req.Kind] = req.succeed(c.now())
}

func (c *Controller) notify(kind, message string) {
	c.notices = append(c.notices, Notice{Kind: kind, Message: message, At: c.now()})
	if len(c.notices) > maxNotices {
		c.notices = slices.Clone(c.notices[len(c.notices)-maxNotices:])
	}
}

func (c *Controller) now() time.Time {
	if c.clock != nil {
		return c.clock()
	}
	return time.Now().UTC()
}

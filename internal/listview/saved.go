package listview

import (
	"context"
	"time"
)

// SavedView is a named snapshot of advanced filters. Views are created and
// deleted, never edited in place.
type SavedView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Filters   Filters   `json:"filters"`
	CreatedAt time.Time `json:"createdAt"`
}

// ViewStore persists the saved views of one list page.
type ViewStore interface {
	List() []SavedView
	Get(id string) (SavedView, bool)
	Save(ctx context.Context, name string, filters Filters) (SavedView, error)
	Delete(ctx context.Context, id string) error
}

// Fetcher loads the raw collection behind a list page.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Row, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]Row, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context) ([]Row, error) { return f(ctx) }

// Deleter removes records by identifier for bulk actions.
type Deleter interface {
	Delete(ctx context.Context, ids []string) error
}

// DeleterFunc adapts a function to Deleter.
type DeleterFunc func(ctx context.Context, ids []string) error

// Delete calls f.
func (f DeleterFunc) Delete(ctx context.Context, ids []string) error { return f(ctx, ids) }

// Recorder observes pipeline recomputes.
type Recorder interface {
	ObserveRecompute(entity string, rows int, took time.Duration)
}

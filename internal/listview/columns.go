package listview

import (
	"errors"
	"slices"
)

// ErrNoVisibleColumns is returned when an edit session would hide every column.
var ErrNoVisibleColumns = errors.New("listview: at least one column must stay visible")

// ColumnVisibility tracks the ordered set of rendered columns. Edits happen in
// a session holding transient available/selected sets; only Commit changes
// the visible columns.
type ColumnVisibility struct {
	declared []string
	visible  []string

	editing   bool
	available []string
	selected  []string
}

// NewColumnVisibility starts with initial, restricted to declared keys.
func NewColumnVisibility(declared, initial []string) *ColumnVisibility {
	c := &ColumnVisibility{declared: slices.Clone(declared)}
	c.visible = c.sanitize(initial)
	return c
}

// Visible returns the committed column keys in render order.
func (c *ColumnVisibility) Visible() []string {
	return slices.Clone(c.visible)
}

// Set replaces the visible columns directly, dropping unknown and duplicate
// keys. An empty result keeps the current columns. Any open session is
// discarded.
func (c *ColumnVisibility) Set(keys []string) error {
	clean := c.sanitize(keys)
	if len(clean) == 0 {
		return ErrNoVisibleColumns
	}
	c.visible = clean
	c.Cancel()
	return nil
}

// Begin opens an edit session seeded from the committed columns.
func (c *ColumnVisibility) Begin() {
	c.editing = true
	c.selected = slices.Clone(c.visible)
	c.available = c.remaining(c.selected)
}

// Editing reports whether a session is open.
func (c *ColumnVisibility) Editing() bool { return c.editing }

// Available lists columns that can be added in the open session.
func (c *ColumnVisibility) Available() []string { return slices.Clone(c.available) }

// Selected lists the columns chosen in the open session, in order.
func (c *ColumnVisibility) Selected() []string { return slices.Clone(c.selected) }

// Add moves keys from the available set to the end of the selection.
func (c *ColumnVisibility) Add(keys ...string) {
	if !c.editing {
		return
	}
	for _, key := range keys {
		idx := slices.Index(c.available, key)
		if idx < 0 {
			continue
		}
		c.available = slices.Delete(c.available, idx, idx+1)
		c.selected = append(c.selected, key)
	}
}

// Remove moves keys back to the available set, which stays in declared order.
func (c *ColumnVisibility) Remove(keys ...string) {
	if !c.editing {
		return
	}
	for _, key := range keys {
		idx := slices.Index(c.selected, key)
		if idx < 0 {
			continue
		}
		c.selected = slices.Delete(c.selected, idx, idx+1)
	}
	c.available = c.remaining(c.selected)
}

// MoveUp swaps key with its predecessor in the selection.
func (c *ColumnVisibility) MoveUp(key string) {
	if !c.editing {
		return
	}
	idx := slices.Index(c.selected, key)
	if idx <= 0 {
		return
	}
	c.selected[idx-1], c.selected[idx] = c.selected[idx], c.selected[idx-1]
}

// MoveDown swaps key with its successor in the selection.
func (c *ColumnVisibility) MoveDown(key string) {
	if !c.editing {
		return
	}
	idx := slices.Index(c.selected, key)
	if idx < 0 || idx == len(c.selected)-1 {
		return
	}
	c.selected[idx+1], c.selected[idx] = c.selected[idx], c.selected[idx+1]
}

// Commit replaces the visible columns with the session selection and closes
// the session. An empty selection is refused and the session stays open.
func (c *ColumnVisibility) Commit() error {
	if !c.editing {
		return nil
	}
	if len(c.selected) == 0 {
		return ErrNoVisibleColumns
	}
	c.visible = slices.Clone(c.selected)
	c.Cancel()
	return nil
}

// Cancel discards the open session.
func (c *ColumnVisibility) Cancel() {
	c.editing = false
	c.available = nil
	c.selected = nil
}

// Reset restores keys as the visible columns and closes any session.
func (c *ColumnVisibility) Reset(keys []string) {
	c.visible = c.sanitize(keys)
	c.Cancel()
}

func (c *ColumnVisibility) sanitize(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if !slices.Contains(c.declared, key) || slices.Contains(out, key) {
			continue
		}
		out = append(out, key)
	}
	return out
}

func (c *ColumnVisibility) remaining(selected []string) []string {
	out := make([]string, 0, len(c.declared))
	for _, key := range c.declared {
		if !slices.Contains(selected, key) {
			out = append(out, key)
		}
	}
	return out
}

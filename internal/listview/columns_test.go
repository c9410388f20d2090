package listview

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var declared = []string{"name", "email", "phone", "status", "role"}

func TestNewColumnVisibilityDropsUnknown(t *testing.T) {
	cv := NewColumnVisibility(declared, []string{"email", "bogus", "name", "email"})
	assert.Equal(t, []string{"email", "name"}, cv.Visible())
}

func TestColumnSessionCommit(t *testing.T) {
	cv := NewColumnVisibility(declared, []string{"name", "email"})
	cv.Begin()
	require.True(t, cv.Editing())
	assert.Equal(t, []string{"phone", "status", "role"}, cv.Available())

	cv.Add("role", "status", "missing")
	cv.Remove("email")
	cv.MoveUp("role")
	cv.MoveDown("name")

	assert.Equal(t, []string{"role", "status", "name"}, cv.Selected())
	assert.Equal(t, []string{"email", "phone"}, cv.Available())
	// Nothing is visible until the session commits.
	assert.Equal(t, []string{"name", "email"}, cv.Visible())

	require.NoError(t, cv.Commit())
	assert.False(t, cv.Editing())
	assert.Equal(t, []string{"role", "status", "name"}, cv.Visible())
}

func TestColumnSessionCancel(t *testing.T) {
	cv := NewColumnVisibility(declared, []string{"name", "email"})
	cv.Begin()
	cv.Add("phone")
	cv.Cancel()
	assert.False(t, cv.Editing())
	assert.Equal(t, []string{"name", "email"}, cv.Visible())
	assert.Empty(t, cv.Selected())
	assert.Empty(t, cv.Available())
}

func TestColumnSessionRefusesEmptyCommit(t *testing.T) {
	cv := NewColumnVisibility(declared, []string{"name"})
	cv.Begin()
	cv.Remove("name")
	err := cv.Commit()
	assert.True(t, errors.Is(err, ErrNoVisibleColumns))
	assert.True(t, cv.Editing())
	assert.Equal(t, []string{"name"}, cv.Visible())
}

func TestColumnEditsOutsideSessionAreIgnored(t *testing.T) {
	cv := NewColumnVisibility(declared, []string{"name"})
	cv.Add("email")
	cv.MoveUp("name")
	require.NoError(t, cv.Commit())
	assert.Equal(t, []string{"name"}, cv.Visible())
}

func TestColumnSetReplacesAndClosesSession(t *testing.T) {
	cv := NewColumnVisibility(declared, []string{"name"})
	cv.Begin()
	require.NoError(t, cv.Set([]string{"status", "name", "nope"}))
	assert.False(t, cv.Editing())
	assert.Equal(t, []string{"status", "name"}, cv.Visible())

	assert.ErrorIs(t, cv.Set([]string{"nope"}), ErrNoVisibleColumns)
	assert.Equal(t, []string{"status", "name"}, cv.Visible())
}

func TestColumnVisibleReturnsCopy(t *testing.T) {
	cv := NewColumnVisibility(declared, []string{"name", "email"})
	got := cv.Visible()
	got[0] = "mutated"
	assert.Equal(t, []string{"name", "email"}, cv.Visible())
}

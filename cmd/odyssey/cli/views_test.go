package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-crm/internal/listview"
	"github.com/odyssey-erp/odyssey-crm/internal/savedviews"
)

func TestViewsCLILifecycle(t *testing.T) {
	ctx := context.Background()
	kv := savedviews.NewMemoryKV()
	views, err := NewViewsCLI(kv)
	require.NoError(t, err)

	alice := ViewsTarget{Client: "alice", Scope: "employee"}
	saved, err := views.Save(ctx, alice, "Inactive", listview.Filters{"status": {Value: "INACTIVE"}})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	_, err = kv.Get(ctx, "alice:employeeViews")
	require.NoError(t, err)

	list, err := views.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Inactive", list[0].Name)

	bob, err := views.List(ctx, ViewsTarget{Client: "bob", Scope: "employee"})
	require.NoError(t, err)
	assert.Empty(t, bob)

	require.NoError(t, views.Delete(ctx, alice, saved.ID))
	list, err = views.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, views.Delete(ctx, alice, saved.ID), savedviews.ErrViewNotFound)
	_, err = views.List(ctx, ViewsTarget{Client: "alice"})
	assert.Error(t, err)
}

func TestNewViewsCLIRequiresStore(t *testing.T) {
	_, err := NewViewsCLI(nil)
	assert.Error(t, err)
}

func TestRenderViews(t *testing.T) {
	views := []listview.SavedView{{
		ID:   "v1",
		Name: "Leads",
		Filters: listview.Filters{
			"type":  {Value: "LEAD"},
			"owner": {Value: "bob", Operator: listview.OperatorExclude},
		},
	}}

	var table bytes.Buffer
	require.NoError(t, RenderViews(&table, views, false))
	assert.Contains(t, table.String(), "owner!=bob type=LEAD")
	assert.Contains(t, table.String(), "Leads")

	var empty bytes.Buffer
	require.NoError(t, RenderViews(&empty, nil, false))
	assert.Equal(t, "No saved views.\n", empty.String())

	var raw bytes.Buffer
	require.NoError(t, RenderViews(&raw, nil, true))
	var decoded []listview.SavedView
	require.NoError(t, json.Unmarshal(raw.Bytes(), &decoded))
	assert.Empty(t, decoded)
}

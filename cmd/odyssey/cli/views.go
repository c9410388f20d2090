package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/odyssey-erp/odyssey-crm/internal/listview"
	"github.com/odyssey-erp/odyssey-crm/internal/savedviews"
)

// ViewsCLI manages saved views directly in their backing store.
type ViewsCLI struct {
	kv savedviews.KV
}

// NewViewsCLI wraps kv.
func NewViewsCLI(kv savedviews.KV) (*ViewsCLI, error) {
	if kv == nil {
		return nil, errors.New("views cli: store not configured")
	}
	return &ViewsCLI{kv: kv}, nil
}

// ViewsTarget names the saved view set of one client and page, e.g. client
// "alice" and scope "employee".
type ViewsTarget struct {
	Client string
	Scope  string
}

func (c *ViewsCLI) open(ctx context.Context, target ViewsTarget) (*savedviews.Store, error) {
	if c == nil || c.kv == nil {
		return nil, errors.New("views cli: store not configured")
	}
	if strings.TrimSpace(target.Scope) == "" {
		return nil, errors.New("views cli: --scope is required")
	}
	return savedviews.Open(ctx, savedviews.Scoped(c.kv, target.Client), target.Scope)
}

// List returns the saved views of target.
func (c *ViewsCLI) List(ctx context.Context, target ViewsTarget) ([]listview.SavedView, error) {
	store, err := c.open(ctx, target)
	if err != nil {
		return nil, err
	}
	return store.List(), nil
}

// Save stores a new view for target.
func (c *ViewsCLI) Save(ctx context.Context, target ViewsTarget, name string, filters listview.Filters) (listview.SavedView, error) {
	store, err := c.open(ctx, target)
	if err != nil {
		return listview.SavedView{}, err
	}
	return store.Save(ctx, name, filters)
}

// Delete removes a view of target by id.
func (c *ViewsCLI) Delete(ctx context.Context, target ViewsTarget, id string) error {
	store, err := c.open(ctx, target)
	if err != nil {
		return err
	}
	return store.Delete(ctx, id)
}

// RenderViews prints views as a table or JSON.
func RenderViews(out io.Writer, views []listview.SavedView, asJSON bool) error {
	if asJSON {
		if views == nil {
			views = []listview.SavedView{}
		}
		return json.NewEncoder(out).Encode(views)
	}
	if len(views) == 0 {
		_, err := fmt.Fprintln(out, "No saved views.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tFILTERS\tCREATED")
	for _, view := range views {
		rules := make([]string, 0, len(view.Filters))
		for _, key := range view.Filters.Keys() {
			rule := view.Filters[key]
			op := "="
			if rule.Operator == listview.OperatorExclude {
				op = "!="
			}
			rules = append(rules, key+op+rule.Value)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", view.ID, view.Name, strings.Join(rules, " "), view.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

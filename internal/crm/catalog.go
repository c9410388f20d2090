package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-crm/internal/listview"
	"github.com/odyssey-erp/odyssey-crm/internal/remote"
	"github.com/odyssey-erp/odyssey-crm/internal/savedviews"
)

var (
	// ErrUnknownEntity is returned for an entity without a list page.
	ErrUnknownEntity = errors.New("crm: unknown entity")
	// ErrNoEndpoint is returned when the owning service has no base URL.
	ErrNoEndpoint = errors.New("crm: service endpoint not configured")
)

// Endpoints maps each service to its base URL.
type Endpoints map[Service]string

// Catalog indexes list pages by entity.
type Catalog struct {
	pages     map[string]Page
	order     []string
	endpoints Endpoints
}

// NewCatalog validates pages and indexes them. With no pages given the full
// CRM set is used.
func NewCatalog(endpoints Endpoints, pages ...Page) (*Catalog, error) {
	if len(pages) == 0 {
		pages = Pages()
	}
	c := &Catalog{pages: make(map[string]Page, len(pages)), endpoints: endpoints}
	for _, page := range pages {
		if err := page.Schema.Validate(); err != nil {
			return nil, err
		}
		entity := page.Schema.Entity
		if _, dup := c.pages[entity]; dup {
			return nil, fmt.Errorf("crm: duplicate entity %q", entity)
		}
		if page.ViewScope == "" {
			page.ViewScope = entity
		}
		c.pages[entity] = page
		c.order = append(c.order, entity)
	}
	return c, nil
}

// Entities lists entity names in declaration order.
func (c *Catalog) Entities() []string {
	return append([]string(nil), c.order...)
}

// Page returns the page of entity.
func (c *Catalog) Page(entity string) (Page, error) {
	page, ok := c.pages[entity]
	if !ok {
		return Page{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	return page, nil
}

// Endpoint resolves the collection URL of entity.
func (c *Catalog) Endpoint(entity string) (string, error) {
	page, err := c.Page(entity)
	if err != nil {
		return "", err
	}
	base := strings.TrimRight(c.endpoints[page.Service], "/")
	if base == "" {
		return "", fmt.Errorf("%w: %s for %s", ErrNoEndpoint, page.Service, entity)
	}
	return base + page.Path, nil
}

// Factory assembles list controllers for catalog pages.
type Factory struct {
	Catalog *Catalog
	Client  *remote.Client
	Cache   *remote.CollectionCache
	Views   savedviews.KV
	Logger  *slog.Logger
	Metrics listview.Recorder
}

// Source returns the remote source of entity.
func (f *Factory) Source(entity string) (*remote.Source, error) {
	endpoint, err := f.Catalog.Endpoint(entity)
	if err != nil {
		return nil, err
	}
	return &remote.Source{Entity: entity, Endpoint: endpoint, Client: f.Client, Cache: f.Cache}, nil
}

// NewController builds the controller of entity for one client. Saved views
// are scoped to the client.
func (f *Factory) NewController(ctx context.Context, entity, clientID string) (*listview.Controller, error) {
	page, err := f.Catalog.Page(entity)
	if err != nil {
		return nil, err
	}
	src, err := f.Source(entity)
	if err != nil {
		return nil, err
	}
	cfg := listview.ControllerConfig{
		Schema:  page.Schema,
		Fetcher: src,
		Deleter: src,
		Logger:  f.Logger,
		Metrics: f.Metrics,
	}
	if f.Views != nil {
		store, err := savedviews.Open(ctx, savedviews.Scoped(f.Views, clientID), page.ViewScope)
		if err != nil {
			return nil, fmt.Errorf("crm: open saved views for %s: %w", entity, err)
		}
		cfg.Views = store
	}
	if cfg.Logger != nil {
		cfg.Logger = cfg.Logger.With(slog.String("client", clientID))
	}
	return listview.NewController(cfg)
}

// Package listviewhttp exposes list pages over a JSON API. Each client gets
// its own controller per entity, so filters, paging and selection survive
// between requests.
package listviewhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/listview"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-crm/internal/remote"
	"github.com/odyssey-erp/odyssey-crm/internal/savedviews"
)

const (
	// ClientHeader identifies the caller whose list state a request acts on.
	ClientHeader    = "X-Client-ID"
	anonymousClient = "anonymous"
	requestTimeout  = 15 * time.Second
)

// Handler serves the list page endpoints.
type Handler struct {
	logger    *slog.Logger
	registry  *Registry
	entities  []string
	validator *validator.Validate
}

// NewHandler constructs the list HTTP handler. entities is served as the
// index of available list pages.
func NewHandler(logger *slog.Logger, registry *Registry, entities []string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		logger:    logger,
		registry:  registry,
		entities:  entities,
		validator: v,
	}
}

type listResponse struct {
	View       listview.ViewModel   `json:"view"`
	Selected   []string             `json:"selected"`
	SavedViews []listview.SavedView `json:"saved_views"`
	Notices    []listview.Notice    `json:"notices"`
	Saved      *listview.SavedView  `json:"saved,omitempty"`
}

type quickFilterRequest struct {
	Name string `json:"name" validate:"max=100"`
}

type searchRequest struct {
	Term string `json:"term" validate:"max=200"`
}

type columnSearchRequest struct {
	Column string `json:"column" validate:"required,max=100"`
	Term   string `json:"term" validate:"max=200"`
}

type advancedFiltersRequest struct {
	Filters listview.Filters `json:"filters" validate:"max=100"`
}

type sortRequest struct {
	Key       string `json:"key" validate:"max=100"`
	Direction string `json:"direction" validate:"omitempty,oneof=asc desc"`
}

type pageRequest struct {
	Page  int    `json:"page" validate:"omitempty,min=1"`
	Input string `json:"input" validate:"max=12"`
}

type pageSizeRequest struct {
	ItemsPerPage int `json:"items_per_page" validate:"required,min=1"`
}

type columnsRequest struct {
	Columns []string `json:"columns" validate:"required,min=1,dive,required"`
}

type saveViewRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type selectionRequest struct {
	Action string   `json:"action" validate:"required,oneof=select deselect toggle_page"`
	IDs    []string `json:"ids" validate:"required_unless=Action toggle_page,dive,required"`
}

func (h *Handler) handleEntities(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"entities": h.entities})
}

// handleList renders the current page, loading the collection until a first
// load succeeds.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, http.StatusOK, func(ctx context.Context, c *listview.Controller, _ *listResponse) error {
		if c.State() != listview.StateIdle {
			return nil
		}
		return c.Refresh(ctx)
	})
}

func (h *Handler) handleQuickFilter(w http.ResponseWriter, r *http.Request) {
	var req quickFilterRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, http.StatusOK, func(_ context.Context, c *listview.Controller, _ *listResponse) error {
		return c.SetQuickFilter(req.Name)
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, http.StatusOK, func(_ context.Context, c *listview.Controller, _ *listResponse) error {
		c.SetSearchTerm(req.Term)
		return nil
	})
}

func (h *Handler) handleColumnSearch(w http.ResponseWriter, r *http.Request) {
	var req columnSearchRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, http.StatusOK, func(_ context.Context, c *listview.Controller, _ *listResponse) error {
		return c.SetColumnSearch(req.Column, req.Term)
	})
}

func (h *Handler) handleAdvancedFilters(w http.ResponseWriter, r *http.Request) {
	var req advancedFiltersRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, http.StatusOK, func(_ context.Context, c *listview.Controller, _ *listResponse) error {
		return c.SetAdvancedFilters(req.Filters)
	})
}

func (h *Handler) handleSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, http.StatusOK, func(_ context.Context, c *listview.Controller, _ *listResponse) error {
		return c.SetSort(req.Key, listview.Direction(req.Direction))
	})
}

// handlePage accepts either a page number, clamped into range, or typed page
// input, which is ignored unless it names a page in range.
func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Page == 0 && req.Input == "" {
		httpx.RespondError(w, httpx.FieldErrors{"page": "page or input is required"})
		return
	}
	h.act(w, r, http.StatusOK, func(_ context.Context, c *listview.Controller, _ *listResponse) error {
		if req.Input != "" {
			c.SetPageInput(req.Input)
			return nil
		}
		c.SetPage(req.Page)
		return nil
	})
}

func (h *Handler) handlePageSize(w http.ResponseWriter, r *http.Request) {
	var req pageSizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, http.StatusOK, func(_ context.Context, c *listview.Controller, _ *listResponse) error {
		return c.SetItemsPerPage(req.ItemsPerPage)
	})
}

func (h *Handler) handleColumns(w http.ResponseWriter, r *http.Request) {
	var req columnsRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, http.StatusOK, func(_ context.Context, c *listview.Controller, _ *listResponse) error {
		return c.SetVisibleColumns(req.Columns)
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, http.StatusOK, func(_ context.Context, c *listview.Controller, _ *listResponse) error {
		c.ResetAll()
		return nil
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, http.StatusOK, func(ctx context.Context, c *listview.Controller, _ *listResponse) error {
		return c.Refresh(ctx)
	})
}

func (h *Handler) handleListViews(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, http.StatusOK, func(context.Context, *listview.Controller, *listResponse) error {
		return nil
	})
}

func (h *Handler) handleSaveView(w http.ResponseWriter, r *http.Request) {
	var req saveViewRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, http.StatusCreated, func(ctx context.Context, c *listview.Controller, resp *listResponse) error {
		view, err := c.SaveView(ctx, req.Name)
		if err != nil {
			return err
		}
		resp.Saved = &view
		return nil
	})
}

func (h *Handler) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "viewID")
	h.act(w, r, http.StatusOK, func(ctx context.Context, c *listview.Controller, _ *listResponse) error {
		return c.DeleteView(ctx, id)
	})
}

func (h *Handler) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, http.StatusOK, func(_ context.Context, c *listview.Controller, _ *listResponse) error {
		switch req.Action {
		case "select":
			c.Select(req.IDs...)
		case "deselect":
			c.Deselect(req.IDs...)
		default:
			c.ToggleSelectPage()
		}
		return nil
	})
}

func (h *Handler) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, http.StatusOK, func(_ context.Context, c *listview.Controller, _ *listResponse) error {
		c.ClearSelection()
		return nil
	})
}

func (h *Handler) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, http.StatusOK, func(ctx context.Context, c *listview.Controller, _ *listResponse) error {
		return c.BulkDelete(ctx)
	})
}

// act runs fn against the caller's controller and renders the resulting
// list state. Notices are handed out once, with the first successful
// response after they were raised.
func (h *Handler) act(w http.ResponseWriter, r *http.Request, status int, fn func(context.Context, *listview.Controller, *listResponse) error) {
	client, err := h.clientID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entity := chi.URLParam(r, "entity")
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var resp listResponse
	err = h.registry.With(ctx, client, entity, func(c *listview.Controller) error {
		if err := fn(ctx, c, &resp); err != nil {
			return err
		}
		resp.View = c.View()
		resp.Selected = c.Selected()
		resp.SavedViews = c.SavedViews()
		resp.Notices = c.PopNotices()
		return nil
	})
	if err != nil {
		mapped := mapError(err)
		if !errors.Is(mapped, httpx.ErrValidation) && !errors.Is(mapped, httpx.ErrNotFound) {
			h.logger.Warn("list request failed",
				slog.String("entity", entity),
				slog.String("client", client),
				slog.String("path", r.URL.Path),
				slog.Any("error", err))
		}
		httpx.RespondError(w, mapped)
		return
	}
	if resp.SavedViews == nil {
		resp.SavedViews = []listview.SavedView{}
	}
	if resp.Notices == nil {
		resp.Notices = []listview.Notice{}
	}
	httpx.JSON(w, status, resp)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.RespondError(w, fieldErrors(err))
		return false
	}
	return true
}

func (h *Handler) clientID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(ClientHeader))
	if id == "" {
		return anonymousClient, nil
	}
	if err := h.validator.Var(id, "max=64,printascii"); err != nil || strings.ContainsAny(id, ": ") {
		return "", httpx.FieldErrors{ClientHeader: "must be up to 64 printable characters without spaces or colons"}
	}
	return id, nil
}

func fieldErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	fields := make(httpx.FieldErrors, len(verrs))
	for _, fe := range verrs {
		key := fe.Field()
		if ns := fe.Namespace(); strings.Contains(ns, ".") {
			_, key, _ = strings.Cut(ns, ".")
		}
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		fields[key] = msg
	}
	return fields
}

// mapError translates pipeline, storage and remote failures to the httpx
// sentinels.
func mapError(err error) error {
	var (
		remoteInvalid *remote.ValidationError
		remoteStatus  *remote.StatusError
		netErr        net.Error
	)
	switch {
	case errors.As(err, &remoteInvalid):
		return httpx.FieldErrors(remoteInvalid.Fields)
	case errors.Is(err, crm.ErrUnknownEntity),
		errors.Is(err, savedviews.ErrViewNotFound):
		return fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, listview.ErrUnknownColumn),
		errors.Is(err, listview.ErrUnknownQuickFilter),
		errors.Is(err, listview.ErrInvalidSortOrder),
		errors.Is(err, listview.ErrInvalidOperator),
		errors.Is(err, listview.ErrInvalidPageSize),
		errors.Is(err, listview.ErrNoVisibleColumns),
		errors.Is(err, listview.ErrNothingSelected),
		errors.Is(err, savedviews.ErrInvalidName):
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	case errors.As(err, &remoteStatus),
		errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, crm.ErrNoEndpoint):
		return fmt.Errorf("%w: %v", httpx.ErrUpstream, err)
	default:
		return err
	}
}

package listviewhttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

const (
	remoteRateLimit  = 30
	remoteRateWindow = time.Minute
)

// MountRoutes registers the list endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(remoteRateLimit, remoteRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/api/lists", h.handleEntities)
	r.Route("/api/lists/{entity}", func(lr chi.Router) {
		lr.Get("/", h.handleList)
		lr.Put("/quick-filter", h.handleQuickFilter)
		lr.Put("/search", h.handleSearch)
		lr.Put("/column-search", h.handleColumnSearch)
		lr.Put("/advanced-filters", h.handleAdvancedFilters)
		lr.Put("/sort", h.handleSort)
		lr.Put("/page", h.handlePage)
		lr.Put("/page-size", h.handlePageSize)
		lr.Put("/columns", h.handleColumns)
		lr.Post("/reset", h.handleReset)
		lr.Get("/views", h.handleListViews)
		lr.Delete("/views/{viewID}", h.handleDeleteView)
		lr.Post("/selection", h.handleSelection)
		lr.Delete("/selection", h.handleClearSelection)

		// Endpoints that reach the owning service.
		lr.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Post("/refresh", h.handleRefresh)
			gr.Post("/views", h.handleSaveView)
			gr.Post("/bulk-delete", h.handleBulkDelete)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if client := strings.TrimSpace(r.Header.Get(ClientHeader)); client != "" {
		return "client:" + client, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

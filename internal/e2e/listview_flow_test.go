package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-crm/internal/app"
	listviewhttp "github.com/odyssey-erp/odyssey-crm/internal/listview/http"
	"github.com/odyssey-erp/odyssey-crm/internal/observability"
	_ "github.com/odyssey-erp/odyssey-crm/internal/testing/guard"
	"github.com/odyssey-erp/odyssey-crm/jobs"
)

const employeesPayload = `{"data": [
	{"id": "1", "firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com", "status": "ACTIVE"},
	{"id": "2", "firstName": "Grace", "lastName": "Hopper", "email": "grace@example.com", "status": "INACTIVE"},
	{"id": "3", "firstName": "Alan", "lastName": "Turing", "email": "alan@example.com", "status": "ACTIVE"}
]}`

type listBody struct {
	View struct {
		TotalCount  int              `json:"total_count"`
		QuickFilter string           `json:"quick_filter"`
		PageRows    []map[string]any `json:"page_rows"`
	} `json:"view"`
	SavedViews []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"saved_views"`
	Saved *struct {
		ID string `json:"id"`
	} `json:"saved"`
}

type harness struct {
	t      *testing.T
	router http.Handler
}

func (h harness) do(method, path, body string) (int, listBody) {
	h.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(listviewhttp.ClientHeader, "alice")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	var out listBody
	if rr.Code < 300 {
		require.NoError(h.t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	}
	return rr.Code, out
}

func TestWarmupThenListThroughCache(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(employeesPayload))
	}))
	defer upstream.Close()

	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("USER_MANAGEMENT_URL", upstream.URL)
	cfg, err := app.LoadConfig()
	require.NoError(t, err)

	ctx := context.Background()
	metrics := observability.NewMetrics()
	services, err := app.OpenServices(ctx, cfg, nil, metrics)
	require.NoError(t, err)
	defer services.Close()

	warmup := jobs.NewCollectionsWarmupJob(services.Factory, []string{"employees"}, nil, nil)
	task, err := jobs.NewCollectionsWarmupTask(jobs.CollectionsWarmupPayload{})
	require.NoError(t, err)
	require.NoError(t, warmup.Handle(ctx, task))
	require.Equal(t, int32(1), hits.Load())

	h := harness{t: t, router: app.NewRouter(app.RouterParams{
		Config:      cfg,
		ListHandler: listviewhttp.NewHandler(nil, listviewhttp.NewRegistry(services.Factory), services.Catalog.Entities()),
		JobHandler:  jobs.NewHandler(nil, nil),
		Metrics:     metrics,
	})}

	code, body := h.do(http.MethodGet, "/api/lists/employees", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, body.View.TotalCount)
	assert.Equal(t, int32(1), hits.Load(), "first page load should be served from the warmed cache")

	code, body = h.do(http.MethodPut, "/api/lists/employees/advanced-filters", `{"filters":{"status":{"value":"ACTIVE","operator":"include"}}}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, body.View.TotalCount)

	code, body = h.do(http.MethodPost, "/api/lists/employees/views", `{"name":"Active staff"}`)
	require.Equal(t, http.StatusCreated, code)
	require.NotNil(t, body.Saved)
	viewID := body.Saved.ID

	code, body = h.do(http.MethodPost, "/api/lists/employees/reset", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, body.View.TotalCount)
	require.Len(t, body.SavedViews, 1)

	code, body = h.do(http.MethodPut, "/api/lists/employees/quick-filter", `{"name":"`+viewID+`"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, viewID, body.View.QuickFilter)
	assert.Equal(t, 2, body.View.TotalCount)

	invalidate, err := jobs.NewCollectionInvalidateTask("employees")
	require.NoError(t, err)
	require.NoError(t, warmup.HandleInvalidate(ctx, invalidate))

	code, body = h.do(http.MethodPost, "/api/lists/employees/refresh", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 2, body.View.TotalCount, "refresh keeps the applied view")

	code, body = h.do(http.MethodDelete, "/api/lists/employees/views/"+viewID, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "all", body.View.QuickFilter)
	assert.Equal(t, 3, body.View.TotalCount)
	assert.Empty(t, body.SavedViews)
}

package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	listviewhttp "github.com/odyssey-erp/odyssey-crm/internal/listview/http"
	"github.com/odyssey-erp/odyssey-crm/internal/observability"
	_ "github.com/odyssey-erp/odyssey-crm/internal/testing/guard"
	"github.com/odyssey-erp/odyssey-crm/jobs"
)

func testConfig(t *testing.T, redisAddr, serviceURL string) *Config {
	t.Helper()
	t.Setenv("REDIS_ADDR", redisAddr)
	t.Setenv("USER_MANAGEMENT_URL", serviceURL)
	cfg, err := LoadConfig()
	require.NoError(t, err)
	return cfg
}

func TestRouterServesListsEndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"1","firstName":"Ada","lastName":"Lovelace","status":"ACTIVE"}]`))
	}))
	defer upstream.Close()
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr.Addr(), upstream.URL)

	metrics := observability.NewMetrics()
	services, err := OpenServices(context.Background(), cfg, nil, metrics)
	require.NoError(t, err)
	defer services.Close()

	router := NewRouter(RouterParams{
		Config:      cfg,
		ListHandler: listviewhttp.NewHandler(nil, listviewhttp.NewRegistry(services.Factory), services.Catalog.Entities()),
		JobHandler:  jobs.NewHandler(nil, nil),
		Metrics:     metrics,
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/lists/employees", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "Ada Lovelace")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `odyssey_listview_recompute_total{entity="employees"}`), body)
}

func TestOpenServicesRequiresRedisForRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	cfg := testConfig(t, addr, "http://127.0.0.1:1")
	_, err := OpenServices(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}

func TestOpenServicesMemoryBackendWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	t.Setenv("SAVED_VIEW_BACKEND", BackendMemory)
	cfg := testConfig(t, addr, "http://127.0.0.1:1")
	services, err := OpenServices(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	defer services.Close()
	assert.Nil(t, services.Redis)
	assert.NotNil(t, services.Views)
}

package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.SavedViewBackend)
	assert.Equal(t, 10*time.Second, cfg.RemoteTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SAVED_VIEW_BACKEND", "postgres")
	t.Setenv("USER_MANAGEMENT_URL", "http://users.internal")
	t.Setenv("COLLECTION_CACHE_TTL", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, BackendPostgres, cfg.SavedViewBackend)
	assert.Equal(t, 30*time.Second, cfg.CollectionCacheTTL)
	assert.Equal(t, "http://users.internal", cfg.Endpoints()[crm.UserManagement])
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("SAVED_VIEW_BACKEND", "etcd")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel(" Warning ").String())
	assert.Equal(t, "INFO", parseLevel("").String())
}

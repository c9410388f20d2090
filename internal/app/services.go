package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/listview"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/db"
	"github.com/odyssey-erp/odyssey-crm/internal/remote"
	"github.com/odyssey-erp/odyssey-crm/internal/savedviews"
)

// Services bundles the connections and collaborators shared by the server,
// the worker and the CLI.
type Services struct {
	Redis   *redis.Client
	Pool    *pgxpool.Pool
	Views   savedviews.KV
	Cache   *remote.CollectionCache
	Catalog *crm.Catalog
	Factory *crm.Factory
	logger  *slog.Logger
}

// OpenServices connects Redis, and Postgres when it backs saved views, then
// assembles the CRM controller factory.
func OpenServices(ctx context.Context, cfg *Config, logger *slog.Logger, metrics listview.Recorder) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Services{logger: logger}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		if cfg.SavedViewBackend == BackendRedis {
			return nil, err
		}
		logger.Warn("redis unavailable, collection cache disabled", slog.Any("error", err))
	} else {
		s.Redis = redisClient
	}

	switch cfg.SavedViewBackend {
	case BackendRedis:
		s.Views = savedviews.NewRedisKV(s.Redis, savedviews.DefaultRedisPrefix)
	case BackendPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Pool = pool
		if err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
			return savedviews.NewPostgresKV(tx).EnsureSchema(ctx)
		}); err != nil {
			s.Close()
			return nil, err
		}
		s.Views = savedviews.NewPostgresKV(pool)
	default:
		s.Views = savedviews.NewMemoryKV()
	}

	s.Catalog, err = crm.NewCatalog(cfg.Endpoints())
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("app: build catalog: %w", err)
	}
	s.Cache = remote.NewCollectionCache(s.Redis, cfg.CollectionCacheTTL)
	s.Factory = &crm.Factory{
		Catalog: s.Catalog,
		Client:  remote.NewClient(&http.Client{Timeout: cfg.RemoteTimeout}, logger),
		Cache:   s.Cache,
		Views:   s.Views,
		Logger:  logger,
		Metrics: metrics,
	}
	return s, nil
}

// Close releases the connections.
func (s *Services) Close() {
	if s == nil {
		return
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.logger.Warn("redis close", slog.Any("error", err))
		}
	}
}

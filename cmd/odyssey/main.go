package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-crm/internal/app"
	listviewhttp "github.com/odyssey-erp/odyssey-crm/internal/listview/http"
	"github.com/odyssey-erp/odyssey-crm/internal/observability"
	"github.com/odyssey-erp/odyssey-crm/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	services, err := app.OpenServices(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("open services", slog.Any("error", err))
		os.Exit(1)
	}
	defer services.Close()

	if err := services.Cache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("collection cache invalidation listener", slog.Any("error", err))
	}

	registry := listviewhttp.NewRegistry(services.Factory)
	go registry.RunEviction(ctx, time.Minute, cfg.ListIdleTimeout)
	listHandler := listviewhttp.NewHandler(logger, registry, services.Catalog.Entities())

	var jobHandler *jobs.Handler
	if services.Redis != nil {
		inspector := asynq.NewInspector(cfg.AsynqRedis())
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		ListHandler: listHandler,
		JobHandler:  jobHandler,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("saved_views", cfg.SavedViewBackend),
			slog.Int("entities", len(services.Catalog.Entities())))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

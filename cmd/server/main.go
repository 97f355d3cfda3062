package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/andres10976/certcheck/internal/config"
	"github.com/andres10976/certcheck/internal/handler"
	"github.com/andres10976/certcheck/internal/metrics"
	"github.com/andres10976/certcheck/internal/middleware"
	"github.com/andres10976/certcheck/internal/service/batch"
	"github.com/andres10976/certcheck/internal/service/probe"
	"github.com/andres10976/certcheck/internal/service/watch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	// Services
	collector := metrics.New()
	prober := probe.New(probe.Options{
		Port:             cfg.ProbePort,
		ConnectTimeout:   cfg.ConnectTimeout,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}, logger)
	checker := batch.New(prober, cfg.BatchConcurrency, collector, logger)
	watcher := watch.New(checker, collector, cfg.WatchDomains, cfg.WatchInterval, logger)

	// Handlers
	checkHandler := handler.NewCheckHandler(checker, cfg.MaxDomains, cfg.MaxBodyBytes, logger)
	watchHandler := handler.NewWatchHandler(watcher)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.CORSAllowOrigin))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	checkHandler.RegisterRoutes(r)
	watchHandler.RegisterRoutes(r)
	r.Method(http.MethodGet, "/metrics", collector.Handler())

	// A batch of n domains can take up to n probe budgets when run
	// sequentially, so the write timeout is sized from the config.
	probeBudget := cfg.ConnectTimeout + cfg.HandshakeTimeout
	batches := (cfg.MaxDomains + cfg.BatchConcurrency - 1) / cfg.BatchConcurrency
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(batches)*probeBudget + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.WatchAutostart {
		if err := watcher.Start(context.Background()); err != nil {
			logger.Error("failed to start watcher", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "addr", cfg.Addr(), "concurrency", cfg.BatchConcurrency)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if watcher.IsRunning() {
		watcher.Stop(context.Background())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown did not complete", "error", err)
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/darkodi/shortlinks/internal/analytics"
	"github.com/darkodi/shortlinks/internal/config"
	"github.com/darkodi/shortlinks/internal/events"
	"github.com/darkodi/shortlinks/internal/handler"
	"github.com/darkodi/shortlinks/internal/logger"
	"github.com/darkodi/shortlinks/internal/middleware"
	"github.com/darkodi/shortlinks/internal/registry"
	"github.com/darkodi/shortlinks/internal/repository"
	"github.com/darkodi/shortlinks/internal/service"
)

func main() {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(cfg.Log)
	log.Info("starting shortlinks",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
		"environment", cfg.App.Environment,
		"store", cfg.Store.Backend)

	// ============================================================
	// INITIALIZE STORES
	// ============================================================
	links, histories, err := openStores(cfg.Store)
	if err != nil {
		log.Error("failed to initialize store", "backend", cfg.Store.Backend, "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := links.Close(); err != nil {
			log.Error("failed to close link store", "error", err.Error())
		}
		if err := histories.Close(); err != nil {
			log.Error("failed to close history store", "error", err.Error())
		}
	}()

	recorder := analytics.NewRecorder(histories)
	reg := registry.New(links, recorder, registry.Options{
		CodeLength:      cfg.Shortcode.Length,
		MaxAttempts:     cfg.Shortcode.MaxAttempts,
		DefaultValidity: cfg.Shortcode.DefaultValidity,
	})

	// ============================================================
	// CLICK STREAM (optional)
	// ============================================================
	var opts []service.Option
	if cfg.RedisEnabled() {
		log.Info("connecting to Redis...", "addr", cfg.Redis.Addr, "stream", cfg.Redis.Stream)
		pub, err := events.NewRedisPublisher(context.Background(), &cfg.Redis)
		if err != nil {
			// clicks are still counted and recorded locally
			log.Warn("click stream disabled", "error", err.Error())
		} else {
			defer func() {
				if err := pub.Close(); err != nil {
					log.Error("failed to close Redis client", "error", err.Error())
				}
			}()
			opts = append(opts, service.WithPublisher(pub), service.WithPublishTimeout(cfg.Redis.PublishTimeout))
		}
	}

	svc := service.NewURLService(reg, recorder, cfg.App.BaseURL, log, opts...)

	ctx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	svc.StartSweeper(ctx, cfg.Sweep.Interval, cfg.Sweep.Grace)

	h := handler.NewURLHandler(svc, nil, log)
	router := h.SetupRoutes()

	// ============================================================
	// BUILD MIDDLEWARE CHAIN
	// ============================================================
	wrappedRouter := middleware.Chain(router,
		middleware.RequestID,
		middleware.RecoveryWithLogger(log),
		middleware.LoggingWithLogger(log),
		middleware.CORS(cfg.App.CORSOrigin),
	)

	// ============================================================
	// CREATE SERVER WITH CONFIG TIMEOUTS
	// ============================================================
	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      wrappedRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	go func() {
		if cfg.IsDevelopment() {
			fmt.Printf("🚀 Server starting on %s\n", cfg.App.BaseURL)
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Endpoints:")
			fmt.Println("  POST /shorturls        - Create short URL")
			fmt.Println("  GET  /shorturls/{code} - Link details and click history")
			fmt.Println("  GET  /s/{code}         - Redirect to original")
			fmt.Println("  GET  /health           - Health check")
			fmt.Println("───────────────────────────────────────")
		}
		log.Info("server starting", "addr", addr, "base_url", cfg.App.BaseURL)
		serverErr <- server.ListenAndServe()
	}()

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	select {
	case err := <-serverErr:
		log.Error("server error", "error", err.Error())
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())
		stopSweeper()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err.Error())
			if err := server.Close(); err != nil {
				log.Error("forced shutdown failed", "error", err.Error())
			}
		}

		log.Info("server stopped")
	}
}

// openStores returns the link and history stores for the configured backend.
// The sqlite backend serves both from one handle.
func openStores(cfg config.StoreConfig) (repository.LinkStore, repository.HistoryStore, error) {
	switch cfg.Backend {
	case "sqlite":
		db, err := repository.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, nopCloseHistory{db}, nil
	default:
		return repository.NewMemoryLinkStore(), repository.NewMemoryHistoryStore(), nil
	}
}

// nopCloseHistory keeps the shared sqlite handle from being closed twice
type nopCloseHistory struct {
	repository.HistoryStore
}

func (nopCloseHistory) Close() error { return nil }

// Package main is the entry point for the csvtree-api server.
// Note: identity, sign-in, and checkout pages are handled by the frontend's
// auth provider and Stripe. The API verifies JWTs and Stripe webhook signatures.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/csvtree/csvtree-api/internal/auth"
	"github.com/csvtree/csvtree-api/internal/config"
	"github.com/csvtree/csvtree-api/internal/database"
	"github.com/csvtree/csvtree-api/internal/http/handlers"
	"github.com/csvtree/csvtree-api/internal/http/mw"
	"github.com/csvtree/csvtree-api/internal/http/routes"
	"github.com/csvtree/csvtree-api/internal/logging"
	"github.com/csvtree/csvtree-api/internal/repository"
	"github.com/csvtree/csvtree-api/internal/service"
	"github.com/csvtree/csvtree-api/internal/shutdown"
	"github.com/csvtree/csvtree-api/internal/version"
	"github.com/csvtree/csvtree-api/internal/worker"
)

func main() {
	// Initialize logger with TTY detection and format control
	logger := logging.SetDefault()

	// Log version info first thing
	v := version.Get()
	logger.Info("starting csvtree-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Run migrations (with logging for each migration applied)
	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	if applied, err := database.GetAppliedMigrations(db); err != nil {
		logger.Warn("failed to read migration state", "error", err)
	} else {
		logger.Info("database schema ready", "migrations_applied", len(applied))
	}

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Halt batches left running by a previous server run. Their unattempted
	// records stay pending so the user can requeue and resume.
	staleCount, err := repos.Batches.MarkStaleRunningHalted(context.Background(), 1*time.Hour)
	if err != nil {
		logger.Warn("failed to halt stale batches", "error", err)
	} else if staleCount > 0 {
		logger.Info("halted stale running batches", "count", staleCount)
	}
	// No runner is live yet, so any record still in processing was orphaned
	// by the previous run.
	orphanCount, err := repos.Records.ResetProcessingToPending(context.Background())
	if err != nil {
		logger.Warn("failed to reset orphaned records", "error", err)
	} else if orphanCount > 0 {
		logger.Info("reset orphaned processing records", "count", orphanCount)
	}

	// Initialize services
	services, err := service.NewServices(cfg, repos, logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	if cfg.HasServiceKeys() {
		logger.Info("system provider keys configured from environment")
	}

	// JWT verifier for Supabase-issued tokens
	verifier := auth.NewVerifier(cfg.JWTSecret)

	// Start background worker for batch processing
	batchWorker := worker.New(
		repos.Batches,
		services.Batch,
		worker.Config{
			PollInterval: cfg.WorkerPollInterval,
			Concurrency:  2,
		},
		logger,
	)
	ctx, cancel := context.WithCancel(context.Background())
	batchWorker.Start(ctx)

	// Create router
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request size limit sized for a full batch of base64 thumbnails
	maxBody := int64(cfg.MaxRecordsPerBatch)*int64(cfg.MaxThumbnailBytes) + 1<<20
	router.Use(middleware.RequestSize(maxBody))

	// Global rate limit by IP
	router.Use(httprate.LimitByIP(120, time.Minute))

	// Global concurrency throttle
	router.Use(middleware.Throttle(100))

	// Idle monitor for scale-to-zero deployments. Health probes don't count
	// as activity, and an in-flight batch keeps the machine alive.
	var idleMonitor *shutdown.IdleMonitor
	if cfg.IdleTimeout > 0 {
		idleMonitor = shutdown.NewIdleMonitor(shutdown.IdleMonitorConfig{
			Timeout:             cfg.IdleTimeout,
			Logger:              logger,
			ExcludePaths:        []string{"/healthz", "/readyz"},
			BackgroundWorkCheck: batchWorker.Busy,
		})
		router.Use(idleMonitor.Middleware)
		idleMonitor.Start()
		logger.Info("idle monitor enabled", "timeout", cfg.IdleTimeout.String())
	}

	// Create Huma API config with OpenAPI docs
	humaConfig := huma.DefaultConfig("CSVTree API", v.Version)
	humaConfig.Info.Description = "Batch metadata extraction for stock photo assets. Upload thumbnails, get titles, keywords, and categories back as platform-ready CSV."
	humaConfig.Servers = []*huma.Server{
		{URL: cfg.BaseURL, Description: "API Server"},
	}
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		mw.SecurityScheme: {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "Supabase access token passed as `Bearer <jwt>`.",
		},
	}

	api := humachi.New(router, humaConfig)
	api.UseMiddleware(mw.HumaAuth(api, verifier, cfg.IsAdminUser))

	h := handlers.New(cfg, services, db, logger)
	routes.Register(api, h, cfg.AdminEnabled)

	// Raw HTTP handlers for non-JSON content types
	router.Group(func(r chi.Router) {
		r.Use(mw.Auth(verifier, cfg.IsAdminUser))
		r.Get("/api/v1/batches/{id}/export", h.Export.Download)
	})

	// Stripe webhook (signature verified by handler, not user auth)
	if cfg.StripeWebhookSecret != "" {
		router.Post("/api/v1/webhooks/stripe", h.Stripe.HandleWebhook)
		logger.Info("stripe webhook endpoint enabled")
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on signal or idle timeout
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		var idleChan <-chan struct{}
		if idleMonitor != nil {
			idleChan = idleMonitor.ShutdownChan()
		}

		select {
		case sig := <-sigChan:
			logger.Info("shutting down server", "signal", sig.String())
		case <-idleChan:
			logger.Info("shutting down server", "reason", "idle timeout")
		}

		// Stop the worker first so a running batch can finish or halt cleanly
		cancel()
		batchWorker.Stop()
		if idleMonitor != nil {
			idleMonitor.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.WorkerShutdownGracePeriod)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	// Start server
	logger.Info("starting server", "port", cfg.Port, "base_url", cfg.BaseURL, "admin_enabled", cfg.AdminEnabled)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

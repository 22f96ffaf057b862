package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/civicpulse/civicpulse/config"
	"github.com/civicpulse/civicpulse/internal/api"
	"github.com/civicpulse/civicpulse/internal/database"
	"github.com/civicpulse/civicpulse/internal/enrichment"
	"github.com/civicpulse/civicpulse/internal/logger"
	"github.com/civicpulse/civicpulse/internal/metrics"
	middlewares "github.com/civicpulse/civicpulse/internal/middleware"
	"github.com/civicpulse/civicpulse/internal/predictor"
	"github.com/civicpulse/civicpulse/internal/ratelimit"
	"github.com/civicpulse/civicpulse/internal/risk"
	"github.com/civicpulse/civicpulse/internal/store"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting CivicPulse application",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize databases
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}
	defer db.Close(ctx)

	mongo, err := database.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal("Failed to initialize mongo", "error", err)
	}
	defer mongo.Close(ctx)

	// Initialize store
	reportStore := store.New(db, mongo.Reports())

	// Initialize engine components
	enricher := enrichment.NewWithConfig(reportStore, enrichment.Config{
		Concurrency:           cfg.Engine.EnrichmentConcurrency,
		QueriesPerSecond:      cfg.Engine.EnrichmentRateLimit,
		NearbyRadiusMeters:    cfg.Engine.NearbyRadiusMeters,
		DuplicateRadiusMeters: cfg.Engine.DuplicateRadiusMeters,
		DuplicateCandidates:   cfg.Engine.DuplicateCandidates,
		DuplicateThreshold:    cfg.Engine.DuplicateThreshold,
	})
	pred := predictor.NewWithConfig(reportStore, cfg.Engine.TrainingSampleLimit, cfg.Engine.NearbyRadiusMeters)
	clusterer := risk.New(reportStore)

	// Initial training pass; the model serves defaults until data exists
	if result, err := pred.Train(ctx); err != nil {
		logger.Warn("Initial model training failed", "error", err)
	} else {
		logger.Info("Initial model training complete", "trained", result.Trained, "samples", result.Samples)
	}

	// Periodic retraining in background
	go runRetrainLoop(ctx, pred, cfg.Engine.RetrainInterval)

	// Redis-backed rate limiting (optional)
	var limits *ratelimit.Manager
	if cfg.Redis.URL != "" {
		limits, err = ratelimit.NewManager(cfg.Redis.URL)
		if err != nil {
			logger.Fatal("Failed to initialize rate limiter", "error", err)
		}
		defer limits.Close()
	} else {
		logger.Info("REDIS_URL not set; redis rate limiting disabled")
	}

	// Setup HTTP server
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.ReadTimeout))
	r.Use(middlewares.Security)
	r.Use(middlewares.RedisRateLimiter(limits))

	// Initialize API handlers
	apiHandler := api.NewHandler(reportStore, enricher, pred, clusterer, limits, cfg.Admin.AdminSecret, Version, BuildTime, GitCommit)
	apiHandler.RegisterRoutes(r)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

// runRetrainLoop refits the predictor on a fixed interval so fresh
// resolutions feed back into predictions without operator action
func runRetrainLoop(ctx context.Context, pred *predictor.Predictor, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			result, err := pred.Train(ctx)
			if err != nil {
				metrics.RecordTrainingRun("error", time.Since(start))
				logger.Error("Scheduled model training failed", "error", err)
				continue
			}
			metrics.RecordTrainingRun("success", time.Since(start))
			logger.Info("Scheduled model training complete",
				"trained", result.Trained,
				"samples", result.Samples,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	}
}

func startMetricsServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", "address", addr, "path", path)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", "error", err)
	}
}

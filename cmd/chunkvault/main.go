package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tmeadon/chunkvault/internal/config"
	"github.com/tmeadon/chunkvault/internal/coordinator"
	"github.com/tmeadon/chunkvault/internal/handlers"
	"github.com/tmeadon/chunkvault/internal/metrics"
	"github.com/tmeadon/chunkvault/internal/middleware"
	"github.com/tmeadon/chunkvault/internal/repository"
	"github.com/tmeadon/chunkvault/internal/repository/postgres"
	"github.com/tmeadon/chunkvault/internal/repository/sqlite"
	s3backend "github.com/tmeadon/chunkvault/internal/storage/s3"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("starting chunkvault",
		"port", cfg.Port,
		"database_type", cfg.DatabaseType,
		"max_file_size", cfg.MaxFileSize,
		"max_chunk_index", cfg.MaxChunkIndex,
		"default_chunk_size", cfg.DefaultChunkSize,
		"s3_bucket", cfg.S3Bucket,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize session store
	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer repos.Cleanup()

	slog.Info("session store initialized", "database_type", repos.DatabaseType)

	// Initialize storage backend
	backend, err := s3backend.NewS3Backend(ctx, s3backend.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		PathStyle:       cfg.S3PathStyle,
	})
	if err != nil {
		slog.Error("failed to initialize storage backend", "error", err)
		os.Exit(1)
	}

	slog.Info("storage backend ready", "bucket", cfg.S3Bucket, "region", cfg.S3Region)

	coord := coordinator.New(repos.Sessions, backend, coordinator.Limits{
		MaxFileSize:      cfg.MaxFileSize,
		MaxChunkIndex:    cfg.MaxChunkIndex,
		DefaultChunkSize: cfg.DefaultChunkSize,
		AllowedRoles:     cfg.AllowedRoles,
	}, logger)

	// Record start time for health checks
	startTime := time.Now()

	// Setup HTTP router
	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload/init", handlers.UploadInitHandler(coord))
	mux.HandleFunc("/api/upload/chunk/", handlers.UploadChunkHandler(coord))
	mux.HandleFunc("/api/upload/complete/", handlers.UploadCompleteHandler(coord))
	mux.HandleFunc("/api/upload/cancel/", handlers.UploadCancelHandler(coord))
	mux.HandleFunc("/api/upload/status/", handlers.UploadStatusHandler(coord))
	mux.HandleFunc("/health", handlers.HealthHandler(backend, repos.DatabaseType, startTime))
	mux.Handle("/metrics", promhttp.Handler())

	// Wrap with middleware (order: Recovery -> Logging -> Metrics -> handlers)
	handler := middleware.RecoveryMiddleware(
		middleware.LoggingMiddleware(
			metrics.Middleware(mux),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Minute, // Chunk bodies can be large
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start idle session sweep worker
	go sweepWorker(ctx, coord, time.Duration(cfg.SweepIdleHours)*time.Hour)

	// Start HTTP server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "address", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		slog.Error("server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		slog.Info("shutdown signal received", "signal", sig)

		// Stop the sweep worker
		cancel()

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				slog.Error("server close failed", "error", err)
			}
			os.Exit(1)
		}

		slog.Info("server shutdown complete")
	}
}

// openRepositories opens the configured session store.
func openRepositories(ctx context.Context, cfg *config.Config) (*repository.Repositories, error) {
	if cfg.DatabaseType == repository.DatabaseTypePostgres {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, int32(cfg.DBMaxConns))
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return postgres.NewRepositories(pool)
	}

	db, err := sqlite.Initialize(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return sqlite.NewRepositories(db)
}

// sweepWorker periodically cancels sessions idle past the cutoff so their
// backend transfers are reclaimed.
func sweepWorker(ctx context.Context, coord *coordinator.Coordinator, idleFor time.Duration) {
	interval := idleFor / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := coord.SweepIdle(ctx, idleFor); err != nil {
				slog.Error("idle session sweep failed", "error", err)
			}
		}
	}
}

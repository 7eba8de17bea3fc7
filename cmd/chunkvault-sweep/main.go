// chunkvault-sweep is a one-shot maintenance tool that cancels upload
// sessions idle past the configured cutoff and aborts their backend
// multipart transfers. It is intended to run from cron or a scheduled job
// alongside a chunkvault deployment.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/tmeadon/chunkvault/internal/config"
	"github.com/tmeadon/chunkvault/internal/coordinator"
	"github.com/tmeadon/chunkvault/internal/repository"
	"github.com/tmeadon/chunkvault/internal/repository/postgres"
	"github.com/tmeadon/chunkvault/internal/repository/sqlite"
	s3backend "github.com/tmeadon/chunkvault/internal/storage/s3"
)

func main() {
	idleHours := flag.Int("idle-hours", 0, "override SWEEP_IDLE_HOURS")
	dryRun := flag.Bool("dry-run", false, "list idle sessions without cancelling them")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *idleHours > 0 {
		cfg.SweepIdleHours = *idleHours
	}
	idleFor := time.Duration(cfg.SweepIdleHours) * time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer repos.Cleanup()

	if *dryRun {
		idle, err := repos.Sessions.GetIdleSince(ctx, time.Now().UTC().Add(-idleFor))
		if err != nil {
			slog.Error("failed to list idle sessions", "error", err)
			os.Exit(1)
		}
		for _, s := range idle {
			slog.Info("idle session",
				"session_id", s.SessionID,
				"owner_id", s.OwnerID,
				"status", s.Status,
				"updated_at", s.UpdatedAt,
			)
		}
		slog.Info("dry run complete", "idle_sessions", len(idle))
		return
	}

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

	coord := coordinator.New(repos.Sessions, backend, coordinator.Limits{
		MaxFileSize:      cfg.MaxFileSize,
		MaxChunkIndex:    cfg.MaxChunkIndex,
		DefaultChunkSize: cfg.DefaultChunkSize,
		AllowedRoles:     cfg.AllowedRoles,
	}, logger)

	swept, err := coord.SweepIdle(ctx, idleFor)
	if err != nil {
		slog.Error("sweep failed", "error", err)
		os.Exit(1)
	}

	slog.Info("sweep complete", "swept", swept, "idle_hours", cfg.SweepIdleHours)
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

// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

// Package main is the entry point for the Archivus daemon.
//
// Archivus is a scheduled backup coordinator: on a fixed interval it
// snapshots every configured target (PostgreSQL databases via pg_dump,
// file trees via tar), stamps and publishes the artifacts to a sink
// (local filesystem or S3-compatible object storage), prunes expired
// artifacts per the retention policy, and reports health derived from
// the last completed cycle.
//
// # Application Architecture
//
// The daemon initializes components in the following order:
//
//  1. Configuration: environment variables over config file over
//     defaults (Koanf v2)
//  2. Target registry: validated, duplicate names are fatal
//  3. Sink: filesystem or S3-compatible object storage, with optional
//     gzip compression and AES-GCM encryption layers
//  4. Snapshot executor and retention manager
//  5. History store: BadgerDB-backed snapshot and cycle journal
//  6. Scheduler: the backup cycle loop
//  7. HTTP server: /healthz probe, Prometheus /metrics, and the
//     authenticated /api/v1 operational endpoints
//
// The scheduler and HTTP server run under a suture supervisor tree in
// separate layers, so a crashing backup loop cannot take down the
// health endpoint that reports it.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults. Secrets are never placed in the config file;
// settings like ARCHIVUS_ENCRYPTION_KEY_ENV name the environment
// variable that holds the secret.
//
// Minimal single-target setup:
//
//	export ARCHIVUS_TARGETS=main-db:relational_db:MAIN_DB_DSN
//	export MAIN_DB_DSN=postgres://backup:s3cret@db:5432/app
//	export ARCHIVUS_SINK_ROOT=/var/backups/archivus
//	./archivus
//
// # Health
//
// Health is derived from the last completed cycle: healthy iff it ran
// at least one target, every snapshot succeeded, and it started less
// than two intervals ago. Three probe forms are exposed:
//
//   - GET /healthz: plain text 200/503, unauthenticated
//   - GET /api/v1/health: JSON detail
//   - cmd/healthcheck: exit 0/1 for container HEALTHCHECK directives
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger a draining shutdown: an in-flight cycle
// may finish within the configured grace period
// (ARCHIVUS_SHUTDOWN_GRACE, default 5m) before being aborted, and the
// HTTP server drains connections for up to 10 seconds.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/archivus/internal/api"
	"github.com/tomtom215/archivus/internal/config"
	"github.com/tomtom215/archivus/internal/coordinator"
	"github.com/tomtom215/archivus/internal/history"
	"github.com/tomtom215/archivus/internal/logging"
	"github.com/tomtom215/archivus/internal/middleware"
	"github.com/tomtom215/archivus/internal/notify"
	"github.com/tomtom215/archivus/internal/sink"
	"github.com/tomtom215/archivus/internal/supervisor"
	"github.com/tomtom215/archivus/internal/supervisor/services"
)

// version is set via -ldflags at release build.
var version = "dev"

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().Str("version", version).Msg("Starting Archivus with supervisor tree")
	logging.Info().
		Int("targets", len(cfg.Targets)).
		Str("sink", cfg.Sink.Backend).
		Dur("interval", cfg.Scheduler.Interval()).
		Bool("server_enabled", cfg.Server.Enabled).
		Msg("Configuration loaded")

	// Duplicate or invalid target names abort startup; a coordinator
	// silently skipping a misconfigured target would defeat its purpose.
	registry, err := coordinator.NewRegistryFromConfig(cfg.Targets)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build target registry")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snk, err := sink.New(ctx, cfg.Sink)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize sink")
	}

	executor, err := coordinator.NewExecutor(cfg, snk)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize snapshot executor")
	}

	retention := coordinator.NewRetention(snk, cfg.Retention, registry.List())

	hist, err := history.Open(cfg.History)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open history store")
	}
	defer func() {
		if err := hist.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing history store")
		}
	}()

	// Keep the interface nil when notifications are off; a typed nil
	// *notify.Mailer would defeat the scheduler's nil check.
	var notifier coordinator.Notifier
	if cfg.Notify.Enabled {
		notifier = notify.NewMailer(cfg.Notify)
		logging.Info().
			Str("smtp_host", cfg.Notify.SMTPHost).
			Int("recipients", len(cfg.Notify.To)).
			Msg("Email notifications enabled")
	}

	scheduler := coordinator.NewScheduler(cfg, registry, executor, retention, hist, notifier)

	// Bridge zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	// The supervisor must outwait the scheduler's drain grace before
	// declaring it unstopped.
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Scheduler.ShutdownGrace + 30*time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddSchedulerService(scheduler)
	logging.Info().Msg("Scheduler added to supervisor tree")

	if cfg.Server.Enabled {
		perfmon := middleware.NewPerformanceMonitor(1000)
		handler := api.NewHandler(scheduler, registry, hist, retention, perfmon, version)
		router := api.NewRouter(handler, cfg.Server)

		server := &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router.SetupChi(),
			ReadTimeout:  cfg.Server.Timeout,
			WriteTimeout: cfg.Server.Timeout,
			IdleTimeout:  60 * time.Second,
		}

		tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
		logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")
	} else {
		logging.Info().Msg("HTTP server disabled; health surfaces only through structured logs")
	}

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

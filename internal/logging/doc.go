// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

// Package logging provides centralized zerolog-based structured logging for Archivus.
//
// This package implements a unified logging layer using zerolog, providing
// zero-allocation structured JSON logging for production and human-readable
// console output for development. All coordinator components log through this
// package so that snapshot cycles, retention sweeps, and API activity share a
// single configurable output.
//
// # Quick Start
//
//	import "github.com/tomtom215/archivus/internal/logging"
//
//	// Initialize at application startup
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Caller: false,
//	})
//
//	// Log messages with structured fields
//	logging.Info().Str("target", "main-db").Msg("Snapshot completed")
//	logging.Error().Err(err).Str("target", "main-db").Msg("Snapshot failed")
//
//	// Component-scoped child loggers
//	schedLogger := logging.WithComponent("scheduler")
//	schedLogger.Info().Msg("Cycle started")
//
// # Output Formats
//
// Two output formats are supported:
//   - json: structured JSON, one event per line (production default)
//   - console: colorized human-readable output (development)
//
// # Supervisor Integration
//
// The suture supervisor logs through log/slog. NewSlogLogger bridges the
// global zerolog logger into an *slog.Logger so supervisor lifecycle events
// land in the same stream as everything else.
package logging

// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

// Package config provides layered configuration management for Archivus
// using Koanf v2.
//
// Configuration is loaded from three sources, highest priority last:
//
//  1. Built-in defaults for every optional setting
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables (ARCHIVUS_* prefix)
//
// # Quick Start
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//	// cfg.Scheduler.IntervalSeconds, cfg.Targets, etc. are now populated
//
// # Backup Targets
//
// Targets are configured either as a YAML list:
//
//	targets:
//	  - name: main-db
//	    kind: relational_db
//	    dsn_env: MAIN_DB_DSN
//	  - name: media-files
//	    kind: file_tree
//	    path: /srv/media
//
// or through the compact ARCHIVUS_TARGETS form for container deployments:
//
//	ARCHIVUS_TARGETS="main-db:relational_db:MAIN_DB_DSN,media-files:file_tree:/srv/media"
//
// The third field names the source: a filesystem path for file_tree targets,
// or the NAME of an environment variable holding the DSN for relational_db
// targets. Connection strings themselves never appear in configuration.
//
// # Secrets
//
// Secret material is never stored in the Config struct. Settings that need
// secrets name an environment variable instead (dsn_env, encryption key_env,
// object sink access_key_env/secret_key_env, SMTP password_env) and the
// owning component reads the variable when it needs the value.
//
// # Validation
//
// Load() validates the assembled configuration and fails fast with an error
// naming the offending environment variable, so a misconfigured deployment
// never reaches the scheduler.
package config

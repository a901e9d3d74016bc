// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

/*
koanf.go - Layered configuration loading with Koanf v2.

Loading order (highest priority last):

 1. Built-in defaults (structs provider)
 2. YAML config file (file provider), if one is found
 3. Environment variables (env provider with an explicit key map)

The env provider uses an explicit ARCHIVUS_* to dotted-path map rather than
a generic prefix transform. Unmapped variables are dropped, which prevents
unrelated environment variables from polluting the configuration.
*/
//nolint:staticcheck // File documentation, not package doc
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths lists locations probed for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/archivus/config.yaml",
	"/etc/archivus/config.yml",
}

// envKeyMap maps environment variables to config keys. Variables not listed
// here are ignored by the loader.
var envKeyMap = map[string]string{
	"archivus_interval_seconds":    "scheduler.interval_seconds",
	"archivus_max_concurrent":      "scheduler.max_concurrent",
	"archivus_shutdown_grace":      "scheduler.shutdown_grace",
	"archivus_snapshot_timeout":    "snapshot.timeout",
	"archivus_staging_dir":         "snapshot.staging_dir",
	"archivus_retention_max_age":   "retention.max_age",
	"archivus_retention_max_count": "retention.max_count",
	"archivus_sink_backend":        "sink.backend",
	"archivus_sink_root":           "sink.filesystem.root",
	"archivus_s3_endpoint":         "sink.object.endpoint",
	"archivus_s3_bucket":           "sink.object.bucket",
	"archivus_s3_prefix":           "sink.object.prefix",
	"archivus_s3_region":           "sink.object.region",
	"archivus_s3_use_ssl":          "sink.object.use_ssl",
	"archivus_s3_upload_bandwidth": "sink.object.upload_bandwidth",
	"archivus_compression":         "compression.algorithm",
	"archivus_compression_level":   "compression.level",
	"archivus_encryption_enabled":  "encryption.enabled",
	"archivus_history_path":        "history.path",
	"archivus_history_retention":   "history.retention",
	"archivus_server_enabled":      "server.enabled",
	"archivus_host":                "server.host",
	"archivus_port":                "server.port",
	"archivus_server_timeout":      "server.timeout",
	"archivus_api_token":           "server.api_token",
	"archivus_cors_origins":        "server.cors_origins",
	"archivus_rate_limit_reqs":     "server.rate_limit_reqs",
	"archivus_rate_limit_window":   "server.rate_limit_window",
	"archivus_notify_enabled":      "notify.enabled",
	"archivus_smtp_host":           "notify.smtp_host",
	"archivus_smtp_port":           "notify.smtp_port",
	"archivus_smtp_from":           "notify.from",
	"archivus_smtp_to":             "notify.to",
	"archivus_smtp_starttls":       "notify.starttls",
	"archivus_smtp_username":       "notify.username",
	"archivus_log_level":           "logging.level",
	"archivus_log_format":          "logging.format",
	"archivus_log_caller":          "logging.caller",
	"archivus_targets":             "targets_compact",
}

// sliceConfigKeys lists keys that accept comma-separated string values from
// the environment.
var sliceConfigKeys = []string{
	"server.cors_origins",
	"notify.to",
}

// LoadWithKoanf assembles configuration from defaults, an optional YAML
// file, and environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}
	if err := processCompactTargets(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
// CONFIG_PATH takes precedence over the default search paths.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps an environment variable name to its config key.
// Unmapped variables return "" and are skipped by the provider.
func envTransformFunc(key string) string {
	return envKeyMap[strings.ToLower(key)]
}

// processSliceFields converts comma-separated string values into string
// slices for keys that expect them. YAML lists pass through untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, key := range sliceConfigKeys {
		if !k.Exists(key) {
			continue
		}
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		parts := splitAndTrim(raw, ",")
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("failed to process %s: %w", key, err)
		}
	}
	return nil
}

// processCompactTargets expands the compact ARCHIVUS_TARGETS form into the
// targets list. Each entry is name:kind:source where source is a path for
// file_tree targets and an environment variable name for relational_db
// targets. The compact form replaces any file-configured targets.
func processCompactTargets(k *koanf.Koanf) error {
	if !k.Exists("targets_compact") {
		return nil
	}
	raw, ok := k.Get("targets_compact").(string)
	k.Delete("targets_compact")
	if !ok || raw == "" {
		return nil
	}

	entries := splitAndTrim(raw, ",")
	targets := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return fmt.Errorf("ARCHIVUS_TARGETS entry %q is malformed, want name:kind:source", entry)
		}
		name, kind, source := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])

		target := map[string]interface{}{
			"name": name,
			"kind": kind,
		}
		switch kind {
		case TargetKindFileTree:
			target["path"] = source
		case TargetKindRelationalDB:
			target["dsn_env"] = source
		default:
			return fmt.Errorf("ARCHIVUS_TARGETS entry %q has unknown kind %q", entry, kind)
		}
		targets = append(targets, target)
	}

	if err := k.Set("targets", targets); err != nil {
		return fmt.Errorf("failed to set targets from ARCHIVUS_TARGETS: %w", err)
	}
	return nil
}

// splitAndTrim splits s on sep and trims whitespace, dropping empty parts.
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// noConfigFile points CONFIG_PATH at a path that cannot exist so the loader
// skips the file layer and the test only exercises defaults and env vars.
func noConfigFile(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	noConfigFile(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Scheduler.IntervalSeconds != 86400 {
		t.Errorf("Scheduler.IntervalSeconds = %d, want 86400", cfg.Scheduler.IntervalSeconds)
	}
	if cfg.Snapshot.Timeout != 2*time.Hour {
		t.Errorf("Snapshot.Timeout = %s, want 2h", cfg.Snapshot.Timeout)
	}
	if cfg.Sink.Backend != SinkBackendFilesystem {
		t.Errorf("Sink.Backend = %q, want filesystem", cfg.Sink.Backend)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if len(cfg.Targets) != 0 {
		t.Errorf("Targets = %v, want empty", cfg.Targets)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	noConfigFile(t)
	t.Setenv("ARCHIVUS_INTERVAL_SECONDS", "3600")
	t.Setenv("ARCHIVUS_SNAPSHOT_TIMEOUT", "45m")
	t.Setenv("ARCHIVUS_PORT", "9090")
	t.Setenv("ARCHIVUS_COMPRESSION", "zstd")
	t.Setenv("ARCHIVUS_COMPRESSION_LEVEL", "3")
	t.Setenv("ARCHIVUS_LOG_LEVEL", "debug")
	t.Setenv("ARCHIVUS_CORS_ORIGINS", "http://a.local, http://b.local")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Scheduler.IntervalSeconds != 3600 {
		t.Errorf("Scheduler.IntervalSeconds = %d, want 3600", cfg.Scheduler.IntervalSeconds)
	}
	if cfg.Snapshot.Timeout != 45*time.Minute {
		t.Errorf("Snapshot.Timeout = %s, want 45m", cfg.Snapshot.Timeout)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Compression.Algorithm != "zstd" || cfg.Compression.Level != 3 {
		t.Errorf("Compression = %q/%d, want zstd/3", cfg.Compression.Algorithm, cfg.Compression.Level)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	wantOrigins := []string{"http://a.local", "http://b.local"}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, wantOrigins) {
		t.Errorf("Server.CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, wantOrigins)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
scheduler:
  interval_seconds: 7200
snapshot:
  timeout: 30m
  staging_dir: /var/tmp/archivus
targets:
  - name: main-db
    kind: relational_db
    dsn_env: MAIN_DB_DSN
  - name: media
    kind: file_tree
    path: /srv/media
    timeout: 4h
`)
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Scheduler.IntervalSeconds != 7200 {
		t.Errorf("Scheduler.IntervalSeconds = %d, want 7200", cfg.Scheduler.IntervalSeconds)
	}
	if cfg.Snapshot.Timeout != 30*time.Minute {
		t.Errorf("Snapshot.Timeout = %s, want 30m", cfg.Snapshot.Timeout)
	}
	if cfg.Snapshot.StagingDir != "/var/tmp/archivus" {
		t.Errorf("Snapshot.StagingDir = %q, want /var/tmp/archivus", cfg.Snapshot.StagingDir)
	}
	if len(cfg.Targets) != 2 {
		t.Fatalf("len(Targets) = %d, want 2", len(cfg.Targets))
	}
	if cfg.Targets[0].Name != "main-db" || cfg.Targets[0].Kind != TargetKindRelationalDB || cfg.Targets[0].DSNEnv != "MAIN_DB_DSN" {
		t.Errorf("Targets[0] = %+v, want main-db relational_db MAIN_DB_DSN", cfg.Targets[0])
	}
	if cfg.Targets[1].Name != "media" || cfg.Targets[1].Path != "/srv/media" {
		t.Errorf("Targets[1] = %+v, want media /srv/media", cfg.Targets[1])
	}
	if cfg.Targets[1].Timeout != 4*time.Hour {
		t.Errorf("Targets[1].Timeout = %s, want 4h", cfg.Targets[1].Timeout)
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
`)
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("ARCHIVUS_PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want env override 9100", cfg.Server.Port)
	}
}

func TestCompactTargets(t *testing.T) {
	noConfigFile(t)
	t.Setenv("ARCHIVUS_TARGETS", "main-db:relational_db:MAIN_DB_DSN, media:file_tree:/srv/media")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if len(cfg.Targets) != 2 {
		t.Fatalf("len(Targets) = %d, want 2", len(cfg.Targets))
	}
	if cfg.Targets[0].Name != "main-db" || cfg.Targets[0].DSNEnv != "MAIN_DB_DSN" {
		t.Errorf("Targets[0] = %+v, want main-db/MAIN_DB_DSN", cfg.Targets[0])
	}
	if cfg.Targets[1].Name != "media" || cfg.Targets[1].Path != "/srv/media" {
		t.Errorf("Targets[1] = %+v, want media//srv/media", cfg.Targets[1])
	}
}

func TestCompactTargetsReplaceFileTargets(t *testing.T) {
	path := writeConfigFile(t, `
targets:
  - name: from-file
    kind: file_tree
    path: /srv/file
`)
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("ARCHIVUS_TARGETS", "from-env:file_tree:/srv/env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0].Name != "from-env" {
		t.Errorf("Targets = %+v, want single from-env target", cfg.Targets)
	}
}

func TestCompactTargetsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{"missing fields", "just-a-name", "malformed"},
		{"missing source", "db:relational_db", "malformed"},
		{"unknown kind", "db:ldap:whatever", "unknown kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			noConfigFile(t)
			t.Setenv("ARCHIVUS_TARGETS", tt.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() = %q, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadValidationFailure(t *testing.T) {
	noConfigFile(t)
	t.Setenv("ARCHIVUS_COMPRESSION", "lz4")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() = nil, want validation error")
	}
	if !strings.Contains(err.Error(), "ARCHIVUS_COMPRESSION") {
		t.Errorf("Load() = %q, want error naming ARCHIVUS_COMPRESSION", err)
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := writeConfigFile(t, "server:\n  port: 8080\n")
		t.Setenv(ConfigPathEnvVar, path)

		if got := findConfigFile(); got != path {
			t.Errorf("findConfigFile() = %q, want %q", got, path)
		}
	})

	t.Run("explicit path missing", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))

		// A CONFIG_PATH that does not exist must not fall through to the
		// default search paths.
		if got := findConfigFile(); got != "" {
			t.Errorf("findConfigFile() = %q, want empty", got)
		}
	})
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"ARCHIVUS_PORT", "server.port"},
		{"archivus_log_level", "logging.level"},
		{"ARCHIVUS_TARGETS", "targets_compact"},
		{"PATH", ""},
		{"ARCHIVUS_UNKNOWN_SETTING", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitAndTrim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ", []string{"a", "b"}},
		{"a,,b", []string{"a", "b"}},
		{"", nil},
	}

	for _, tt := range tests {
		got := splitAndTrim(tt.in, ",")
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitAndTrim(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

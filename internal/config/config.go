// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package config

import (
	"time"
)

// Config holds all application configuration loaded from environment
// variables and an optional YAML config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via ARCHIVUS_* variables
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access
// from multiple goroutines.
type Config struct {
	Scheduler   SchedulerConfig   `koanf:"scheduler"`
	Snapshot    SnapshotConfig    `koanf:"snapshot"`
	Retention   RetentionConfig   `koanf:"retention"`
	Sink        SinkConfig        `koanf:"sink"`
	Compression CompressionConfig `koanf:"compression"`
	Encryption  EncryptionConfig  `koanf:"encryption"`
	History     HistoryConfig     `koanf:"history"`
	Server      ServerConfig      `koanf:"server"`
	Notify      NotifyConfig      `koanf:"notify"`
	Logging     LoggingConfig     `koanf:"logging"`

	// Targets is the ordered list of backup targets. Order is preserved
	// through registration and into cycle execution.
	Targets []TargetConfig `koanf:"targets"`
}

// SchedulerConfig holds backup cycle scheduling settings.
//
// Environment Variables:
//   - ARCHIVUS_INTERVAL_SECONDS: Seconds between cycle starts (default: 86400)
//   - ARCHIVUS_MAX_CONCURRENT: Targets processed in parallel per cycle (default: 1)
//   - ARCHIVUS_SHUTDOWN_GRACE: How long a draining shutdown waits for an
//     in-flight cycle before aborting it (default: 5m)
//
// The interval is anchored to cycle start: a cycle beginning at T schedules
// the next attempt at T+interval regardless of how long the cycle ran. If a
// cycle is still running when its successor comes due, the successor is
// skipped, not queued.
type SchedulerConfig struct {
	IntervalSeconds int           `koanf:"interval_seconds"`
	MaxConcurrent   int           `koanf:"max_concurrent"`
	ShutdownGrace   time.Duration `koanf:"shutdown_grace"`
}

// Interval returns the cycle interval as a time.Duration.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// SnapshotConfig holds snapshot execution settings.
//
// Environment Variables:
//   - ARCHIVUS_SNAPSHOT_TIMEOUT: Per-snapshot wall clock limit (default: 2h)
//   - ARCHIVUS_STAGING_DIR: Scratch directory for artifact assembly (default: data/staging)
//
// Snapshots are spooled in the staging directory and only published to the
// sink once fully written, so a crashed or timed-out snapshot never leaves a
// partial artifact behind.
type SnapshotConfig struct {
	Timeout    time.Duration `koanf:"timeout"`
	StagingDir string        `koanf:"staging_dir"`
}

// RetentionConfig holds artifact retention settings. A zero value disables
// the corresponding rule; an artifact is pruned when it violates either
// active rule.
//
// Environment Variables:
//   - ARCHIVUS_RETENTION_MAX_AGE: Delete artifacts older than this (default: 720h)
//   - ARCHIVUS_RETENTION_MAX_COUNT: Keep at most this many artifacts per target (default: 0, disabled)
type RetentionConfig struct {
	MaxAge   time.Duration `koanf:"max_age"`
	MaxCount int           `koanf:"max_count"`
}

// Enabled reports whether any retention rule is active.
func (r RetentionConfig) Enabled() bool {
	return r.MaxAge > 0 || r.MaxCount > 0
}

// SinkConfig selects and configures the artifact destination.
//
// Environment Variables:
//   - ARCHIVUS_SINK_BACKEND: "filesystem" or "object" (default: filesystem)
type SinkConfig struct {
	Backend    string               `koanf:"backend"`
	Filesystem FilesystemSinkConfig `koanf:"filesystem"`
	Object     ObjectSinkConfig     `koanf:"object"`
}

// FilesystemSinkConfig holds local filesystem sink settings.
//
// Environment Variables:
//   - ARCHIVUS_SINK_ROOT: Root directory for stored artifacts (default: data/artifacts)
//
// Artifacts are laid out as <root>/<target>/<artifact-name>.
type FilesystemSinkConfig struct {
	Root string `koanf:"root"`
}

// ObjectSinkConfig holds S3-compatible object store sink settings.
//
// Environment Variables:
//   - ARCHIVUS_S3_ENDPOINT: Object store endpoint (e.g. minio.local:9000)
//   - ARCHIVUS_S3_BUCKET: Bucket name
//   - ARCHIVUS_S3_PREFIX: Key prefix inside the bucket (default: archivus)
//   - ARCHIVUS_S3_REGION: Bucket region (optional)
//   - ARCHIVUS_S3_USE_SSL: Use TLS for the endpoint (default: true)
//   - ARCHIVUS_S3_UPLOAD_BANDWIDTH: Upload rate cap in bytes/second (default: 0, unlimited)
//
// Credentials are read from the environment variables named by
// access_key_env and secret_key_env, never from the config file.
type ObjectSinkConfig struct {
	Endpoint        string `koanf:"endpoint"`
	Bucket          string `koanf:"bucket"`
	Prefix          string `koanf:"prefix"`
	Region          string `koanf:"region"`
	UseSSL          bool   `koanf:"use_ssl"`
	AccessKeyEnv    string `koanf:"access_key_env"`
	SecretKeyEnv    string `koanf:"secret_key_env"`
	UploadBandwidth int64  `koanf:"upload_bandwidth"`
}

// CompressionConfig holds artifact compression settings.
//
// Environment Variables:
//   - ARCHIVUS_COMPRESSION: Algorithm, one of gzip, zstd, none (default: gzip)
//   - ARCHIVUS_COMPRESSION_LEVEL: Compression level 1-9 (default: 6)
//
// For zstd the 1-9 scale is mapped onto the encoder's native levels.
type CompressionConfig struct {
	Algorithm string `koanf:"algorithm"`
	Level     int    `koanf:"level"`
}

// EncryptionConfig holds artifact encryption settings.
//
// Environment Variables:
//   - ARCHIVUS_ENCRYPTION_ENABLED: Encrypt artifacts (default: false)
//
// When enabled, the symmetric key is read from the environment variable
// named by key_env (default ARCHIVUS_ENCRYPTION_KEY) and must be at least
// 32 bytes.
type EncryptionConfig struct {
	Enabled bool   `koanf:"enabled"`
	KeyEnv  string `koanf:"key_env"`
}

// HistoryConfig holds snapshot history store settings.
//
// Environment Variables:
//   - ARCHIVUS_HISTORY_PATH: BadgerDB directory (default: data/history)
//   - ARCHIVUS_HISTORY_RETENTION: TTL for history entries (default: 2160h)
type HistoryConfig struct {
	Path      string        `koanf:"path"`
	Retention time.Duration `koanf:"retention"`
}

// ServerConfig holds the admin API server settings.
//
// Environment Variables:
//   - ARCHIVUS_SERVER_ENABLED: Serve the admin API (default: true)
//   - ARCHIVUS_HOST: Bind address (default: 0.0.0.0)
//   - ARCHIVUS_PORT: Bind port (default: 8080)
//   - ARCHIVUS_SERVER_TIMEOUT: Read/write timeout (default: 30s)
//   - ARCHIVUS_API_TOKEN: Bearer token for /api/v1 endpoints. When empty the
//     API is unauthenticated; /healthz and /metrics are never gated.
//   - ARCHIVUS_CORS_ORIGINS: Comma-separated allowed CORS origins
//   - ARCHIVUS_RATE_LIMIT_REQS: Requests allowed per window (default: 100)
//   - ARCHIVUS_RATE_LIMIT_WINDOW: Rate limit window (default: 1m)
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	APIToken        string        `koanf:"api_token"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// NotifyConfig holds failure notification settings. Notifications are sent
// by SMTP after any cycle that produced at least one failed snapshot.
//
// Environment Variables:
//   - ARCHIVUS_NOTIFY_ENABLED: Send failure notifications (default: false)
//   - ARCHIVUS_SMTP_HOST: SMTP server hostname
//   - ARCHIVUS_SMTP_PORT: SMTP server port (default: 587)
//   - ARCHIVUS_SMTP_FROM: Sender address
//   - ARCHIVUS_SMTP_TO: Comma-separated recipient addresses
//   - ARCHIVUS_SMTP_STARTTLS: Upgrade the connection with STARTTLS (default: true)
//   - ARCHIVUS_SMTP_USERNAME: SMTP auth username (optional)
//
// The SMTP password is read from the environment variable named by
// password_env (default ARCHIVUS_SMTP_PASSWORD).
type NotifyConfig struct {
	Enabled     bool     `koanf:"enabled"`
	SMTPHost    string   `koanf:"smtp_host"`
	SMTPPort    int      `koanf:"smtp_port"`
	StartTLS    bool     `koanf:"starttls"`
	From        string   `koanf:"from"`
	To          []string `koanf:"to"`
	Username    string   `koanf:"username"`
	PasswordEnv string   `koanf:"password_env"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - ARCHIVUS_LOG_LEVEL: Minimum level: trace, debug, info, warn, error (default: info)
//   - ARCHIVUS_LOG_FORMAT: json or console (default: json)
//   - ARCHIVUS_LOG_CALLER: Include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// TargetConfig describes one backup target.
//
// Kind selects the snapshot procedure:
//   - relational_db: logical database dump. DSNEnv names the environment
//     variable holding the connection string.
//   - file_tree: archive of a directory tree. Path is the tree root.
//
// Timeout overrides the global snapshot timeout for this target when
// non-zero. OutputPrefix overrides the artifact name prefix, which
// otherwise is the target name. Retention, when present, replaces the
// global retention policy for this target; a retention block with no
// active rules turns retention off for the target.
type TargetConfig struct {
	Name         string           `koanf:"name"`
	Kind         string           `koanf:"kind"`
	Path         string           `koanf:"path"`
	DSNEnv       string           `koanf:"dsn_env"`
	Timeout      time.Duration    `koanf:"timeout"`
	OutputPrefix string           `koanf:"output_prefix"`
	Retention    *RetentionConfig `koanf:"retention"`
}

// Target kinds.
const (
	TargetKindRelationalDB = "relational_db"
	TargetKindFileTree     = "file_tree"
)

// Sink backends.
const (
	SinkBackendFilesystem = "filesystem"
	SinkBackendObject     = "object"
)

// defaultConfig returns the built-in defaults. Every optional setting has a
// default; required settings (object sink endpoint, SMTP host) validate as
// missing only when their feature is enabled.
func defaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			IntervalSeconds: 86400,
			MaxConcurrent:   1,
			ShutdownGrace:   5 * time.Minute,
		},
		Snapshot: SnapshotConfig{
			Timeout:    2 * time.Hour,
			StagingDir: "data/staging",
		},
		Retention: RetentionConfig{
			MaxAge:   720 * time.Hour,
			MaxCount: 0,
		},
		Sink: SinkConfig{
			Backend: SinkBackendFilesystem,
			Filesystem: FilesystemSinkConfig{
				Root: "data/artifacts",
			},
			Object: ObjectSinkConfig{
				Prefix:       "archivus",
				UseSSL:       true,
				AccessKeyEnv: "ARCHIVUS_S3_ACCESS_KEY",
				SecretKeyEnv: "ARCHIVUS_S3_SECRET_KEY",
			},
		},
		Compression: CompressionConfig{
			Algorithm: "gzip",
			Level:     6,
		},
		Encryption: EncryptionConfig{
			Enabled: false,
			KeyEnv:  "ARCHIVUS_ENCRYPTION_KEY",
		},
		History: HistoryConfig{
			Path:      "data/history",
			Retention: 2160 * time.Hour,
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Notify: NotifyConfig{
			Enabled:     false,
			SMTPPort:    587,
			StartTLS:    true,
			PasswordEnv: "ARCHIVUS_SMTP_PASSWORD",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration from defaults, an optional config file, and
// environment variables, then validates the result.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package config

import (
	"fmt"
	"net/mail"
	"os"
	"regexp"
)

// targetNamePattern restricts names to filename-safe characters since
// they become artifact name prefixes and sink directory names.
var targetNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// Validate checks that the assembled configuration is usable. Error
// messages name the offending environment variable so misconfigured
// deployments fail with an actionable message.
func (c *Config) Validate() error {
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateSnapshot(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	if err := c.validateSink(); err != nil {
		return err
	}
	if err := c.validateCompression(); err != nil {
		return err
	}
	if err := c.validateEncryption(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateNotify(); err != nil {
		return err
	}
	if err := c.validateTargets(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.IntervalSeconds < 1 {
		return fmt.Errorf("ARCHIVUS_INTERVAL_SECONDS must be at least 1, got %d", c.Scheduler.IntervalSeconds)
	}
	if c.Scheduler.MaxConcurrent < 1 {
		return fmt.Errorf("ARCHIVUS_MAX_CONCURRENT must be at least 1, got %d", c.Scheduler.MaxConcurrent)
	}
	if c.Scheduler.ShutdownGrace <= 0 {
		return fmt.Errorf("ARCHIVUS_SHUTDOWN_GRACE must be positive, got %s", c.Scheduler.ShutdownGrace)
	}
	return nil
}

func (c *Config) validateSnapshot() error {
	if c.Snapshot.Timeout <= 0 {
		return fmt.Errorf("ARCHIVUS_SNAPSHOT_TIMEOUT must be positive, got %s", c.Snapshot.Timeout)
	}
	if c.Snapshot.StagingDir == "" {
		return fmt.Errorf("ARCHIVUS_STAGING_DIR must not be empty")
	}
	return nil
}

func (c *Config) validateRetention() error {
	if c.Retention.MaxAge < 0 {
		return fmt.Errorf("ARCHIVUS_RETENTION_MAX_AGE must not be negative, got %s", c.Retention.MaxAge)
	}
	if c.Retention.MaxCount < 0 {
		return fmt.Errorf("ARCHIVUS_RETENTION_MAX_COUNT must not be negative, got %d", c.Retention.MaxCount)
	}
	return nil
}

func (c *Config) validateSink() error {
	switch c.Sink.Backend {
	case SinkBackendFilesystem:
		if c.Sink.Filesystem.Root == "" {
			return fmt.Errorf("ARCHIVUS_SINK_ROOT must not be empty")
		}
		return nil
	case SinkBackendObject:
		return c.validateObjectSink()
	default:
		return fmt.Errorf("ARCHIVUS_SINK_BACKEND must be %q or %q, got %q",
			SinkBackendFilesystem, SinkBackendObject, c.Sink.Backend)
	}
}

func (c *Config) validateObjectSink() error {
	obj := c.Sink.Object
	if obj.Endpoint == "" {
		return fmt.Errorf("ARCHIVUS_S3_ENDPOINT is required when ARCHIVUS_SINK_BACKEND=object")
	}
	if obj.Bucket == "" {
		return fmt.Errorf("ARCHIVUS_S3_BUCKET is required when ARCHIVUS_SINK_BACKEND=object")
	}
	if obj.AccessKeyEnv == "" || obj.SecretKeyEnv == "" {
		return fmt.Errorf("sink.object.access_key_env and secret_key_env must name credential variables")
	}
	if os.Getenv(obj.AccessKeyEnv) == "" {
		return fmt.Errorf("%s must hold the object store access key", obj.AccessKeyEnv)
	}
	if os.Getenv(obj.SecretKeyEnv) == "" {
		return fmt.Errorf("%s must hold the object store secret key", obj.SecretKeyEnv)
	}
	if obj.UploadBandwidth < 0 {
		return fmt.Errorf("ARCHIVUS_S3_UPLOAD_BANDWIDTH must not be negative, got %d", obj.UploadBandwidth)
	}
	return nil
}

func (c *Config) validateCompression() error {
	switch c.Compression.Algorithm {
	case "gzip", "zstd", "none":
	default:
		return fmt.Errorf("ARCHIVUS_COMPRESSION must be gzip, zstd, or none, got %q", c.Compression.Algorithm)
	}
	if c.Compression.Level < 1 || c.Compression.Level > 9 {
		return fmt.Errorf("ARCHIVUS_COMPRESSION_LEVEL must be between 1 and 9, got %d", c.Compression.Level)
	}
	return nil
}

// minEncryptionKeyLength is the minimum key material length in bytes.
const minEncryptionKeyLength = 32

func (c *Config) validateEncryption() error {
	if !c.Encryption.Enabled {
		return nil
	}
	if c.Encryption.KeyEnv == "" {
		return fmt.Errorf("encryption.key_env must name the key variable when encryption is enabled")
	}
	key := os.Getenv(c.Encryption.KeyEnv)
	if len(key) < minEncryptionKeyLength {
		return fmt.Errorf("%s must be at least %d characters when encryption is enabled",
			c.Encryption.KeyEnv, minEncryptionKeyLength)
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Path == "" {
		return fmt.Errorf("ARCHIVUS_HISTORY_PATH must not be empty")
	}
	if c.History.Retention < 0 {
		return fmt.Errorf("ARCHIVUS_HISTORY_RETENTION must not be negative, got %s", c.History.Retention)
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("ARCHIVUS_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("ARCHIVUS_SERVER_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("ARCHIVUS_RATE_LIMIT_REQS must not be negative, got %d", c.Server.RateLimitReqs)
	}
	return nil
}

func (c *Config) validateNotify() error {
	if !c.Notify.Enabled {
		return nil
	}
	if c.Notify.SMTPHost == "" {
		return fmt.Errorf("ARCHIVUS_SMTP_HOST is required when ARCHIVUS_NOTIFY_ENABLED=true")
	}
	if c.Notify.SMTPPort < 1 || c.Notify.SMTPPort > 65535 {
		return fmt.Errorf("ARCHIVUS_SMTP_PORT must be between 1 and 65535, got %d", c.Notify.SMTPPort)
	}
	if c.Notify.From == "" {
		return fmt.Errorf("ARCHIVUS_SMTP_FROM is required when ARCHIVUS_NOTIFY_ENABLED=true")
	}
	if _, err := mail.ParseAddress(c.Notify.From); err != nil {
		return fmt.Errorf("ARCHIVUS_SMTP_FROM is not a valid address: %w", err)
	}
	if len(c.Notify.To) == 0 {
		return fmt.Errorf("ARCHIVUS_SMTP_TO must list at least one recipient when ARCHIVUS_NOTIFY_ENABLED=true")
	}
	for _, to := range c.Notify.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return fmt.Errorf("ARCHIVUS_SMTP_TO entry %q is not a valid address: %w", to, err)
		}
	}
	return nil
}

func (c *Config) validateTargets() error {
	for i, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("target %d has no name", i)
		}
		if !targetNamePattern.MatchString(t.Name) {
			return fmt.Errorf("target %q: name must start with a letter or digit and contain only letters, digits, hyphens, and underscores (max 64)", t.Name)
		}
		switch t.Kind {
		case TargetKindFileTree:
			if t.Path == "" {
				return fmt.Errorf("target %q: path is required for %s targets", t.Name, TargetKindFileTree)
			}
		case TargetKindRelationalDB:
			if t.DSNEnv == "" {
				return fmt.Errorf("target %q: dsn_env is required for %s targets", t.Name, TargetKindRelationalDB)
			}
		default:
			return fmt.Errorf("target %q has unknown kind %q, want %s or %s",
				t.Name, t.Kind, TargetKindRelationalDB, TargetKindFileTree)
		}
		if t.Timeout < 0 {
			return fmt.Errorf("target %q: timeout must not be negative, got %s", t.Name, t.Timeout)
		}
		if t.OutputPrefix != "" && !targetNamePattern.MatchString(t.OutputPrefix) {
			return fmt.Errorf("target %q: output_prefix must start with a letter or digit and contain only letters, digits, hyphens, and underscores (max 64)", t.Name)
		}
		if t.Retention != nil {
			if t.Retention.MaxAge < 0 {
				return fmt.Errorf("target %q: retention.max_age must not be negative, got %s", t.Name, t.Retention.MaxAge)
			}
			if t.Retention.MaxCount < 0 {
				return fmt.Errorf("target %q: retention.max_count must not be negative, got %d", t.Name, t.Retention.MaxCount)
			}
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("ARCHIVUS_LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("ARCHIVUS_LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

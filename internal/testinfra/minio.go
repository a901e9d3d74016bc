// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMinioImage is the MinIO server image used for object
	// sink integration tests.
	DefaultMinioImage = "minio/minio:latest"

	minioPort = "9000/tcp"
)

// MinioContainer is a running MinIO instance for testing the object
// sink against a real S3 API.
type MinioContainer struct {
	testcontainers.Container

	// Endpoint is the host:port of the S3 API, without a scheme, as
	// minio-go expects it.
	Endpoint  string
	AccessKey string
	SecretKey string
}

// MinioOption configures the MinIO container.
type MinioOption func(*minioConfig)

type minioConfig struct {
	image        string
	accessKey    string
	secretKey    string
	startTimeout time.Duration
}

// WithMinioImage sets a custom MinIO Docker image.
func WithMinioImage(image string) MinioOption {
	return func(c *minioConfig) {
		c.image = image
	}
}

// WithMinioCredentials sets the root credentials.
func WithMinioCredentials(accessKey, secretKey string) MinioOption {
	return func(c *minioConfig) {
		c.accessKey = accessKey
		c.secretKey = secretKey
	}
}

// WithMinioStartTimeout sets the startup wait timeout.
func WithMinioStartTimeout(timeout time.Duration) MinioOption {
	return func(c *minioConfig) {
		c.startTimeout = timeout
	}
}

// NewMinioContainer creates and starts a MinIO container.
func NewMinioContainer(ctx context.Context, opts ...MinioOption) (*MinioContainer, error) {
	cfg := &minioConfig{
		image:        DefaultMinioImage,
		accessKey:    "archivus-test",
		secretKey:    "archivus-test-secret",
		startTimeout: 60 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{minioPort},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     cfg.accessKey,
			"MINIO_ROOT_PASSWORD": cfg.secretKey,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(minioPort),
			wait.ForHTTP("/minio/health/live").WithPort(minioPort),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("resolve minio host: %w", err)
	}
	port, err := container.MappedPort(ctx, minioPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("resolve minio port: %w", err)
	}

	return &MinioContainer{
		Container: container,
		Endpoint:  fmt.Sprintf("%s:%s", host, port.Port()),
		AccessKey: cfg.accessKey,
		SecretKey: cfg.secretKey,
	}, nil
}

// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package sink

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/archivus/internal/config"
	"github.com/tomtom215/archivus/internal/logging"
	"github.com/tomtom215/archivus/internal/metrics"
)

const (
	breakerName = "object-sink"

	// breakerFailureThreshold is the consecutive failure count that opens
	// the circuit.
	breakerFailureThreshold uint32 = 5

	// minUploadBurst keeps throttled uploads progressing even when the
	// configured bandwidth is below the store's read chunk size.
	minUploadBurst = 64 * 1024
)

// ObjectSink stores artifacts in an S3-compatible object store under
// <prefix>/<target>/<name>.
type ObjectSink struct {
	client  *minio.Client
	breaker *gobreaker.CircuitBreaker[interface{}]
	limiter *rate.Limiter
	bucket  string
	prefix  string
}

// NewObjectSink connects to the object store, ensures the bucket exists,
// and returns the sink. Credentials are read from the environment
// variables named by cfg.AccessKeyEnv and cfg.SecretKeyEnv.
func NewObjectSink(ctx context.Context, cfg config.ObjectSinkConfig) (*ObjectSink, error) {
	accessKey := os.Getenv(cfg.AccessKeyEnv)
	if accessKey == "" {
		return nil, fmt.Errorf("%s is not set", cfg.AccessKeyEnv)
	}
	secretKey := os.Getenv(cfg.SecretKeyEnv)
	if secretKey == "" {
		return nil, fmt.Errorf("%s is not set", cfg.SecretKeyEnv)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		logging.Info().Str("bucket", cfg.Bucket).Msg("Created artifact bucket")
	}

	var limiter *rate.Limiter
	if cfg.UploadBandwidth > 0 {
		burst := int(cfg.UploadBandwidth)
		if burst < minUploadBurst {
			burst = minUploadBurst
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.UploadBandwidth), burst)
	}

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:    breakerName,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Object sink circuit state changed")
			metrics.SetCircuitBreakerState(name, float64(to))
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})
	metrics.SetCircuitBreakerState(breakerName, float64(gobreaker.StateClosed))

	return &ObjectSink{
		client:  client,
		breaker: breaker,
		limiter: limiter,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
	}, nil
}

// Name identifies the backend for logs and metrics.
func (s *ObjectSink) Name() string { return "object" }

// Put uploads the artifact. Uploads are bandwidth limited when configured
// and run behind the circuit breaker.
func (s *ObjectSink) Put(ctx context.Context, target, name string, r io.Reader, size int64) error {
	start := time.Now()
	err := s.put(ctx, target, name, r, size)
	metrics.RecordSinkUpload(s.Name(), size, time.Since(start), err)
	return err
}

func (s *ObjectSink) put(ctx context.Context, target, name string, r io.Reader, size int64) error {
	if err := checkComponent(target); err != nil {
		return err
	}
	if err := checkComponent(name); err != nil {
		return err
	}

	if s.limiter != nil {
		r = &throttledReader{ctx: ctx, r: r, limiter: s.limiter}
	}

	// Object stores overwrite silently, so duplicates are rejected with a
	// stat first. A collision only counts as a breaker failure when the
	// stat itself fails.
	key := s.objectKey(target, name)
	exists, err := s.breaker.Execute(func() (interface{}, error) {
		_, statErr := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
		if statErr == nil {
			return true, nil
		}
		if minio.ToErrorResponse(statErr).Code == "NoSuchKey" {
			return false, nil
		}
		return false, statErr
	})
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", key, err)
	}
	if exists.(bool) {
		return fmt.Errorf("%s: %w", key, fs.ErrExist)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		})
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// List returns artifacts for a target in name order.
func (s *ObjectSink) List(ctx context.Context, target string) ([]Artifact, error) {
	if err := checkComponent(target); err != nil {
		return nil, err
	}

	prefix := s.objectKey(target, "")
	result, err := s.breaker.Execute(func() (interface{}, error) {
		artifacts := []Artifact{}
		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if obj.Err != nil {
				return nil, obj.Err
			}
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}
			artifacts = append(artifacts, Artifact{
				Target:  target,
				Name:    path.Base(obj.Key),
				Size:    obj.Size,
				ModTime: obj.LastModified,
			})
		}
		return artifacts, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	return result.([]Artifact), nil
}

// Remove deletes one artifact.
func (s *ObjectSink) Remove(ctx context.Context, target, name string) error {
	if err := checkComponent(target); err != nil {
		return err
	}
	if err := checkComponent(name); err != nil {
		return err
	}

	key := s.objectKey(target, name)
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	})
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the underlying client holds no persistent connections.
func (s *ObjectSink) Close() error { return nil }

// objectKey builds <prefix>/<target>/<name>. With an empty name it returns
// the target's listing prefix, trailing slash included.
func (s *ObjectSink) objectKey(target, name string) string {
	if name == "" {
		return path.Join(s.prefix, target) + "/"
	}
	return path.Join(s.prefix, target, name)
}

// throttledReader limits read throughput with a token bucket. Reads are
// capped at the limiter's burst so WaitN never exceeds it.
type throttledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if burst := t.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if waitErr := t.limiter.WaitN(t.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}

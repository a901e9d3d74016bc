// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package sink

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/tomtom215/archivus/internal/config"
)

func TestObjectKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		target string
		artKey string
		want   string
	}{
		{"with prefix", "archivus", "main-db", "a.sql.gz", "archivus/main-db/a.sql.gz"},
		{"empty prefix", "", "main-db", "a.sql.gz", "main-db/a.sql.gz"},
		{"listing prefix", "archivus", "main-db", "", "archivus/main-db/"},
		{"listing prefix no prefix", "", "media", "", "media/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := &ObjectSink{prefix: tt.prefix}
			if got := s.objectKey(tt.target, tt.artKey); got != tt.want {
				t.Errorf("objectKey(%q, %q) = %q, want %q", tt.target, tt.artKey, got, tt.want)
			}
		})
	}
}

func TestNewObjectSinkMissingCredentials(t *testing.T) {
	cfg := config.ObjectSinkConfig{
		Endpoint:     "minio.local:9000",
		Bucket:       "backups",
		AccessKeyEnv: "TEST_OBJECT_SINK_ACCESS",
		SecretKeyEnv: "TEST_OBJECT_SINK_SECRET",
	}

	_, err := NewObjectSink(context.Background(), cfg)
	if err == nil {
		t.Fatal("NewObjectSink() without credentials = nil, want error")
	}
	if !strings.Contains(err.Error(), "TEST_OBJECT_SINK_ACCESS") {
		t.Errorf("error = %q, want it to name the missing variable", err)
	}

	// With only the access key present the secret must be reported.
	t.Setenv("TEST_OBJECT_SINK_ACCESS", "minioadmin")
	_, err = NewObjectSink(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "TEST_OBJECT_SINK_SECRET") {
		t.Errorf("error = %v, want it to name TEST_OBJECT_SINK_SECRET", err)
	}
}

func TestThrottledReaderPreservesContent(t *testing.T) {
	t.Parallel()

	content := strings.Repeat("archivus", 512)
	r := &throttledReader{
		ctx:     context.Background(),
		r:       strings.NewReader(content),
		limiter: rate.NewLimiter(rate.Inf, minUploadBurst),
	}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() = %v, want nil", err)
	}
	if string(got) != content {
		t.Errorf("read %d bytes, want %d intact", len(got), len(content))
	}
}

func TestThrottledReaderCapsReadsAtBurst(t *testing.T) {
	t.Parallel()

	r := &throttledReader{
		ctx:     context.Background(),
		r:       strings.NewReader("0123456789"),
		limiter: rate.NewLimiter(rate.Inf, 4),
	}

	buf := make([]byte, 64)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("Read() = %v, want nil", err)
	}
	if n != 4 {
		t.Errorf("Read() = %d bytes, want burst-capped 4", n)
	}
}

func TestThrottledReaderCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &throttledReader{
		ctx:     ctx,
		r:       strings.NewReader("0123456789"),
		limiter: rate.NewLimiter(rate.Limit(1), 4),
	}

	_, err := io.ReadAll(r)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ReadAll() = %v, want context.Canceled", err)
	}
}

func TestSinkFactoryUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), config.SinkConfig{Backend: "ftp"})
	if err == nil || !strings.Contains(err.Error(), "ftp") {
		t.Errorf("New() = %v, want unknown backend error", err)
	}
}

func TestSinkFactoryFilesystem(t *testing.T) {
	t.Parallel()

	s, err := New(context.Background(), config.SinkConfig{
		Backend:    config.SinkBackendFilesystem,
		Filesystem: config.FilesystemSinkConfig{Root: t.TempDir()},
	})
	if err != nil {
		t.Fatalf("New() = %v, want nil", err)
	}
	if s.Name() != "filesystem" {
		t.Errorf("Name() = %q, want filesystem", s.Name())
	}
}

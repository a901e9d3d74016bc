// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tomtom215/archivus/internal/config"
)

// ErrUnsafePath indicates a target or artifact name that is empty or
// contains path separators or traversal sequences.
var ErrUnsafePath = errors.New("unsafe path component")

// Artifact describes one stored snapshot artifact.
type Artifact struct {
	// Target is the backup target the artifact belongs to.
	Target string `json:"target"`
	// Name is the artifact file name, unique within the target.
	Name string `json:"name"`
	// Size is the stored size in bytes.
	Size int64 `json:"size"`
	// ModTime is when the artifact was stored.
	ModTime time.Time `json:"mod_time"`
}

// Sink is a durable artifact store. Implementations must be safe for
// concurrent use.
type Sink interface {
	// Name identifies the backend for logs and metrics.
	Name() string

	// Put stores an artifact. The reader holds exactly size bytes; Put
	// fails without publishing anything if fewer arrive. Storing a name
	// that already exists for the target is an error.
	Put(ctx context.Context, target, name string, r io.Reader, size int64) error

	// List returns the artifacts stored for a target, in name order.
	// A target with no artifacts yields an empty slice, not an error.
	List(ctx context.Context, target string) ([]Artifact, error)

	// Remove deletes one artifact.
	Remove(ctx context.Context, target, name string) error

	// Close releases backend resources.
	Close() error
}

// New constructs the sink selected by cfg.Backend.
func New(ctx context.Context, cfg config.SinkConfig) (Sink, error) {
	switch cfg.Backend {
	case config.SinkBackendFilesystem:
		return NewFilesystemSink(cfg.Filesystem.Root)
	case config.SinkBackendObject:
		return NewObjectSink(ctx, cfg.Object)
	default:
		return nil, fmt.Errorf("unknown sink backend %q", cfg.Backend)
	}
}

// checkComponent rejects path components that could escape the sink root.
func checkComponent(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("%w: %q", ErrUnsafePath, s)
	}
	return nil
}

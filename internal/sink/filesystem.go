// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/tomtom215/archivus/internal/metrics"
)

// FilesystemSink stores artifacts under a local root directory, one
// subdirectory per target.
type FilesystemSink struct {
	root string
}

// NewFilesystemSink creates the root directory if needed and returns a
// filesystem-backed sink.
func NewFilesystemSink(root string) (*FilesystemSink, error) {
	if root == "" {
		return nil, fmt.Errorf("filesystem sink root must not be empty")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create sink root %s: %w", root, err)
	}
	return &FilesystemSink{root: root}, nil
}

// Name identifies the backend for logs and metrics.
func (s *FilesystemSink) Name() string { return "filesystem" }

// Put writes the artifact with exclusive create and fsyncs it before
// returning. A failed write removes the partial file.
func (s *FilesystemSink) Put(ctx context.Context, target, name string, r io.Reader, size int64) error {
	start := time.Now()
	err := s.put(ctx, target, name, r, size)
	metrics.RecordSinkUpload(s.Name(), size, time.Since(start), err)
	return err
}

//nolint:gosec // G304: paths are built from validated components under the sink root
func (s *FilesystemSink) put(ctx context.Context, target, name string, r io.Reader, size int64) error {
	if err := checkComponent(target); err != nil {
		return err
	}
	if err := checkComponent(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(s.root, target)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create target directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create artifact %s: %w", path, err)
	}

	written, err := io.Copy(f, r)
	if err == nil && size >= 0 && written != size {
		err = fmt.Errorf("short artifact write: wrote %d of %d bytes", written, size)
	}
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path) //nolint:errcheck // Best effort cleanup of partial artifact
		return fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	return nil
}

// List returns artifacts for a target in name order. Subdirectories and
// dotfiles under the target directory are ignored.
func (s *FilesystemSink) List(ctx context.Context, target string) ([]Artifact, error) {
	if err := checkComponent(target); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, target)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []Artifact{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts for %s: %w", target, err)
	}

	artifacts := make([]Artifact, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat artifact %s: %w", entry.Name(), err)
		}
		artifacts = append(artifacts, Artifact{
			Target:  target,
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return artifacts, nil
}

// Remove deletes one artifact.
func (s *FilesystemSink) Remove(ctx context.Context, target, name string) error {
	if err := checkComponent(target); err != nil {
		return err
	}
	if err := checkComponent(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.root, target, name)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove artifact %s: %w", path, err)
	}
	return nil
}

// Close is a no-op for the filesystem backend.
func (s *FilesystemSink) Close() error { return nil }

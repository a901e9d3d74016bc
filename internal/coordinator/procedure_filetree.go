// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package coordinator

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// tarTreeProcedure archives a directory tree as a tar stream. Entry names
// are relative to the tree root so restores can unpack anywhere.
type tarTreeProcedure struct{}

func (p *tarTreeProcedure) extension() string { return ".tar" }

func (p *tarTreeProcedure) run(ctx context.Context, target TargetDescriptor, w io.Writer) error {
	root := target.Path
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("tree root for target %q is unreadable: %w", target.Name, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("tree root %s for target %q is not a directory", root, target.Name)
	}

	tw := tar.NewWriter(w)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		return p.addEntry(tw, path, rel, d)
	})
	if walkErr != nil {
		tw.Close() //nolint:errcheck // Best effort cleanup, walk error takes precedence
		return fmt.Errorf("failed to archive %s: %w", root, walkErr)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive for %s: %w", root, err)
	}
	return nil
}

//nolint:gosec // G304: paths come from the walked tree root
func (p *tarTreeProcedure) addEntry(tw *tar.Writer, path, rel string, d fs.DirEntry) error {
	// Sockets, devices, and pipes have no tar representation here.
	mode := d.Type()
	if !d.IsDir() && !mode.IsRegular() && mode&fs.ModeSymlink == 0 {
		return nil
	}

	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	link := ""
	if mode&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return fmt.Errorf("failed to read symlink %s: %w", path, err)
		}
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("failed to create tar header for %s: %w", path, err)
	}
	header.Name = filepath.ToSlash(rel)
	if d.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", path, err)
	}
	if !mode.IsRegular() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // Best effort cleanup

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to copy %s to archive: %w", path, err)
	}
	return nil
}

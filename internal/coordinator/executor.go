// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package coordinator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/archivus/internal/config"
	"github.com/tomtom215/archivus/internal/logging"
	"github.com/tomtom215/archivus/internal/metrics"
	"github.com/tomtom215/archivus/internal/sink"
)

// artifactTimestampFormat stamps artifact names with the attempt's start
// time in UTC.
const artifactTimestampFormat = "20060102-150405"

// Executor runs snapshot attempts. Every attempt terminates in a
// SnapshotRecord; failures are captured in the record, never returned as
// errors, so one broken target cannot abort a cycle.
type Executor struct {
	sink       sink.Sink
	compressor *compressor
	encryptor  *encryptor
	stagingDir string
	timeout    time.Duration

	// procFor resolves a target to its snapshot procedure.
	procFor func(TargetDescriptor) (snapshotProcedure, error)

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewExecutor builds the snapshot pipeline from configuration and sweeps
// stale partial files out of the staging directory.
func NewExecutor(cfg *config.Config, snk sink.Sink) (*Executor, error) {
	comp, err := newCompressor(cfg.Compression)
	if err != nil {
		return nil, err
	}

	var enc *encryptor
	if cfg.Encryption.Enabled {
		enc, err = newEncryptor(cfg.Encryption)
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(cfg.Snapshot.StagingDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	e := &Executor{
		sink:       snk,
		compressor: comp,
		encryptor:  enc,
		stagingDir: cfg.Snapshot.StagingDir,
		timeout:    cfg.Snapshot.Timeout,
		procFor:    procedureFor,
		inFlight:   make(map[string]struct{}),
	}
	e.sweepStaging()
	return e, nil
}

// Run executes one snapshot attempt for target and returns its record.
// A target that is already being snapshotted fails immediately with an
// overlap record instead of queueing a second attempt behind the first.
func (e *Executor) Run(ctx context.Context, target TargetDescriptor) SnapshotRecord {
	started := time.Now().UTC()

	if !e.tryAcquire(target.Name) {
		logging.Warn().
			Str("target", target.Name).
			Msg("Snapshot already in flight for target, refusing overlapping attempt")
		return e.failureRecord(target.Name, started, ErrorKindOverlap,
			fmt.Errorf("snapshot already in flight for target %q", target.Name))
	}
	defer e.release(target.Name)

	metrics.TrackSnapshotInFlight(true)
	defer metrics.TrackSnapshotInFlight(false)

	timeout := e.timeout
	if target.Timeout > 0 {
		timeout = target.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rec := e.attempt(ctx, target, started)
	metrics.RecordSnapshot(target.Name, string(rec.Status), rec.Duration, rec.ArtifactSize)

	if rec.Succeeded() {
		logging.Info().
			Str("target", target.Name).
			Str("artifact", rec.ArtifactName).
			Int64("size", rec.ArtifactSize).
			Dur("duration", rec.Duration).
			Msg("Snapshot succeeded")
	} else {
		logging.Warn().
			Str("target", target.Name).
			Str("error_kind", rec.ErrorKind).
			Str("error", rec.Error).
			Dur("duration", rec.Duration).
			Msg("Snapshot failed")
	}
	return rec
}

// attempt stages the artifact, publishes it to the sink, and assembles
// the record.
func (e *Executor) attempt(ctx context.Context, target TargetDescriptor, started time.Time) SnapshotRecord {
	procedure, err := e.procFor(target)
	if err != nil {
		return e.failureRecord(target.Name, started, ErrorKindProcedure, err)
	}

	name := target.ArtifactBase() + "-" + started.Format(artifactTimestampFormat) +
		procedure.extension() + e.compressor.extension()
	if e.encryptor != nil {
		name += e.encryptor.extension()
	}

	staged, hasher, err := e.stage(ctx, target, procedure)
	if err != nil {
		return e.failureRecord(target.Name, started, classifyError(ctx, err), err)
	}
	defer e.discardStaging(staged)

	info, err := staged.Stat()
	if err != nil {
		return e.failureRecord(target.Name, started, ErrorKindProcedure, err)
	}
	if _, err := staged.Seek(0, io.SeekStart); err != nil {
		return e.failureRecord(target.Name, started, ErrorKindProcedure, err)
	}

	if err := e.sink.Put(ctx, target.Name, name, staged, info.Size()); err != nil {
		return e.failureRecord(target.Name, started, classifyError(ctx, err), err)
	}

	finished := time.Now().UTC()
	return SnapshotRecord{
		ID:           uuid.NewString(),
		Target:       target.Name,
		Status:       StatusSuccess,
		StartedAt:    started,
		FinishedAt:   finished,
		Duration:     finished.Sub(started),
		ArtifactName: name,
		ArtifactSize: info.Size(),
		Checksum:     hex.EncodeToString(hasher.Sum(nil)),
	}
}

// stage runs the procedure through the compression and encryption stages
// into a staging file. On success the returned file is open at its end;
// on failure the partial file is already removed.
func (e *Executor) stage(ctx context.Context, target TargetDescriptor, procedure snapshotProcedure) (*os.File, hash.Hash, error) {
	f, err := os.CreateTemp(e.stagingDir, target.Name+"-*.partial")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	hasher := sha256.New()
	// The checksum covers the stored bytes, after compression and
	// encryption, so it can verify the sink's copy directly.
	var dest io.Writer = io.MultiWriter(f, hasher)

	var closers []io.Closer
	if e.encryptor != nil {
		encW, wrapErr := e.encryptor.wrap(dest)
		if wrapErr != nil {
			e.discardStaging(f)
			return nil, nil, wrapErr
		}
		closers = append(closers, encW)
		dest = encW
	}
	compW, err := e.compressor.wrap(dest)
	if err != nil {
		e.discardStaging(f)
		return nil, nil, err
	}
	closers = append(closers, compW)

	runErr := procedure.run(ctx, target, compW)

	// Close in reverse stacking order so each stage flushes into the next.
	for i := len(closers) - 1; i >= 0; i-- {
		if closeErr := closers[i].Close(); closeErr != nil && runErr == nil {
			runErr = closeErr
		}
	}
	if runErr != nil {
		e.discardStaging(f)
		return nil, nil, runErr
	}
	return f, hasher, nil
}

// discardStaging closes and removes a staging file. Called on both the
// success and failure paths; the staged copy is never kept once the
// attempt ends.
func (e *Executor) discardStaging(f *os.File) {
	name := f.Name()
	if err := f.Close(); err != nil {
		logging.Debug().Err(err).Str("file", name).Msg("Failed to close staging file")
	}
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		logging.Debug().Err(err).Str("file", name).Msg("Failed to remove staging file")
	}
}

func (e *Executor) failureRecord(target string, started time.Time, kind string, err error) SnapshotRecord {
	finished := time.Now().UTC()
	return SnapshotRecord{
		ID:         uuid.NewString(),
		Target:     target,
		Status:     StatusFailure,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
		ErrorKind:  kind,
		Error:      err.Error(),
	}
}

// classifyError separates deadline overruns from procedure failures.
func classifyError(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	return ErrorKindProcedure
}

func (e *Executor) tryAcquire(target string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[target]; busy {
		return false
	}
	e.inFlight[target] = struct{}{}
	return true
}

func (e *Executor) release(target string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, target)
}

// sweepStaging removes partial files left behind by a previous crash.
func (e *Executor) sweepStaging() {
	entries, err := os.ReadDir(e.stagingDir)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to sweep staging directory")
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".partial") {
			continue
		}
		path := filepath.Join(e.stagingDir, entry.Name())
		if err := os.Remove(path); err != nil {
			logging.Warn().Err(err).Str("file", path).Msg("Failed to remove stale staging file")
			continue
		}
		removed++
	}
	if removed > 0 {
		logging.Info().Int("files", removed).Msg("Removed stale staging files")
	}
}

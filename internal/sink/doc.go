// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

/*
Package sink stores and enumerates finished snapshot artifacts.

A Sink is the durable destination for artifacts produced by the snapshot
executor. The executor fully assembles an artifact in the staging directory
first and only then calls Put, so a sink never sees a partially written
snapshot stream.

# Backends

Two backends are provided:

  - filesystem: artifacts under a local root directory, one subdirectory
    per target. Writes are exclusive-create and fsynced before Put returns.
  - object: artifacts in an S3-compatible object store (MinIO, AWS S3,
    Garage) under <prefix>/<target>/<name>. Remote calls run behind a
    circuit breaker and uploads can be bandwidth limited.

Select and construct a backend from configuration:

	s, err := sink.New(ctx, cfg.Sink)
	if err != nil {
	    return err
	}
	defer s.Close()

# Artifact Layout

Artifacts are addressed by (target, name). Names carry a UTC timestamp
(YYYYMMDD-HHMMSS) so lexical order within a target matches creation order.
Both components are validated against path traversal before any backend
operation.

# Failure Handling

Put never leaves a partial artifact visible: the filesystem backend removes
the file on a failed write, and the object backend relies on the store's
atomic object semantics. The object backend opens its circuit after repeated
consecutive failures so a dead endpoint fails fast instead of stalling every
backup cycle.
*/
package sink

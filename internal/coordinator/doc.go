// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

// Package coordinator implements the backup coordinator core: the target
// registry, the snapshot executor, the retention manager, and the
// scheduler loop that drives them.
//
// # Overview
//
// The coordinator snapshots a fixed set of registered targets on a fixed
// interval:
//
//	Registry  - Named, ordered set of backup targets
//	Executor  - Runs one snapshot attempt and produces a record
//	Retention - Prunes expired artifacts from the sink
//	Scheduler - Ticks the cycle loop and owns coordinator state
//
// # Targets
//
// Two target kinds are supported:
//
//	relational_db - Logical PostgreSQL dump via pg_dump, DSN from an
//	                environment variable named by the target
//	file_tree     - Tar archive of a directory tree
//
// Target names are unique; registering a duplicate name fails startup so
// a misconfigured coordinator never runs half a fleet silently.
//
// # Snapshot Pipeline
//
// Each attempt streams the procedure's output through optional
// compression (gzip or zstd) and optional authenticated encryption
// (XChaCha20-Poly1305) into a staging file, then publishes the artifact
// to the sink. Artifacts are named
//
//	<target>-<YYYYMMDD-HHMMSS><kind ext><compression ext><encryption ext>
//
// for example main-db-20260825-030000.sql.gz.enc. The recorded SHA-256
// checksum covers the stored bytes, so the sink's copy can be verified
// without decrypting.
//
// # Failure Handling
//
// A snapshot failure is data, not an error: every attempt terminates in
// a SnapshotRecord with SUCCESS or FAILURE status, and a failed target
// never aborts the cycle or skips the targets after it. Failed attempts
// carry an error kind (timeout, procedure, overlap) and message.
//
// # Scheduling
//
// The first cycle runs immediately at startup. Subsequent cycles are
// anchored to cycle start times: the next cycle is due one interval
// after the previous one started, regardless of how long it ran. When a
// tick arrives while a cycle is still running the tick is skipped, not
// queued. Cycles never run concurrently.
//
// # Health
//
// The coordinator is healthy when the last completed cycle ran at least
// one target, every snapshot succeeded, and the cycle started less than
// two intervals ago. The zero state (no cycle yet) is unhealthy.
package coordinator

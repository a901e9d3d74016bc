// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package coordinator

import (
	"time"

	"github.com/tomtom215/archivus/internal/config"
)

// TargetKind selects the snapshot procedure for a target.
type TargetKind string

const (
	// KindRelationalDB produces a logical database dump.
	KindRelationalDB TargetKind = "relational_db"

	// KindFileTree produces an archive of a directory tree.
	KindFileTree TargetKind = "file_tree"
)

// Valid reports whether the kind names a known snapshot procedure.
func (k TargetKind) Valid() bool {
	return k == KindRelationalDB || k == KindFileTree
}

// TargetDescriptor describes one backup target. Descriptors are immutable
// once registered.
type TargetDescriptor struct {
	// Name uniquely identifies the target. It is used in artifact names,
	// log fields, and metric labels.
	Name string `json:"name"`

	// Kind selects the snapshot procedure.
	Kind TargetKind `json:"kind"`

	// Path is the tree root for file_tree targets.
	Path string `json:"path,omitempty"`

	// DSNEnv names the environment variable holding the connection string
	// for relational_db targets. The DSN itself is never stored.
	DSNEnv string `json:"dsn_env,omitempty"`

	// Timeout overrides the global snapshot timeout when non-zero.
	Timeout time.Duration `json:"timeout,omitempty"`

	// OutputPrefix overrides the artifact name prefix when set. Empty
	// means artifacts are named after the target.
	OutputPrefix string `json:"output_prefix,omitempty"`

	// Retention replaces the global retention policy when non-nil. An
	// override with no active rules turns retention off for the target.
	Retention *config.RetentionConfig `json:"retention,omitempty"`
}

// ArtifactBase returns the prefix this target's artifacts are named
// with: OutputPrefix when set, otherwise Name.
func (t TargetDescriptor) ArtifactBase() string {
	if t.OutputPrefix != "" {
		return t.OutputPrefix
	}
	return t.Name
}

// SnapshotStatus is the terminal state of one snapshot attempt.
type SnapshotStatus string

const (
	// StatusSuccess means the artifact was fully written to the sink.
	StatusSuccess SnapshotStatus = "SUCCESS"

	// StatusFailure means no artifact was published for this attempt.
	StatusFailure SnapshotStatus = "FAILURE"
)

// Error kinds recorded on failed snapshot attempts.
const (
	// ErrorKindTimeout marks an attempt that exceeded its deadline.
	ErrorKindTimeout = "timeout"

	// ErrorKindProcedure marks a snapshot procedure failure (dump command,
	// unreadable tree, sink write).
	ErrorKindProcedure = "procedure"

	// ErrorKindOverlap marks an attempt that found the target already
	// being snapshotted.
	ErrorKindOverlap = "overlap"
)

// SnapshotRecord is the outcome of one snapshot attempt. Failures are
// recorded here, not raised: a failed target never aborts the cycle it
// runs in.
type SnapshotRecord struct {
	// ID uniquely identifies the attempt.
	ID string `json:"id"`

	// Target is the name of the backup target.
	Target string `json:"target"`

	// Status is SUCCESS or FAILURE.
	Status SnapshotStatus `json:"status"`

	// StartedAt is when the attempt began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the attempt reached a terminal state.
	FinishedAt time.Time `json:"finished_at"`

	// Duration is FinishedAt minus StartedAt.
	Duration time.Duration `json:"duration"`

	// ArtifactName is the stored artifact's name. Empty on failure.
	ArtifactName string `json:"artifact_name,omitempty"`

	// ArtifactSize is the stored artifact's size in bytes.
	ArtifactSize int64 `json:"artifact_size,omitempty"`

	// Checksum is the SHA-256 of the stored artifact, hex encoded.
	Checksum string `json:"checksum,omitempty"`

	// ErrorKind classifies the failure: timeout, procedure, or overlap.
	ErrorKind string `json:"error_kind,omitempty"`

	// Error is the failure message. Empty on success.
	Error string `json:"error,omitempty"`
}

// Succeeded reports whether the attempt produced an artifact.
func (r SnapshotRecord) Succeeded() bool {
	return r.Status == StatusSuccess
}

// CycleTrigger indicates what started a backup cycle.
type CycleTrigger string

const (
	// TriggerScheduled marks a cycle started by the interval timer.
	TriggerScheduled CycleTrigger = "scheduled"

	// TriggerManual marks a cycle started by an operator request.
	TriggerManual CycleTrigger = "manual"
)

// CycleSummary is the outcome of one backup cycle: one record per
// registered target, in registration order.
type CycleSummary struct {
	// ID uniquely identifies the cycle.
	ID string `json:"id"`

	// Trigger is what started the cycle.
	Trigger CycleTrigger `json:"trigger"`

	// StartedAt is when the cycle began. The next scheduled cycle is
	// anchored to this instant, not to FinishedAt.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last target finished.
	FinishedAt time.Time `json:"finished_at"`

	// Duration is FinishedAt minus StartedAt.
	Duration time.Duration `json:"duration"`

	// Records holds one entry per registered target, in registration
	// order, regardless of individual outcomes.
	Records []SnapshotRecord `json:"records"`

	// AllSucceeded is true when every record is SUCCESS and at least one
	// target ran.
	AllSucceeded bool `json:"all_succeeded"`
}

// SchedulerPhase is the scheduler's externally visible state.
type SchedulerPhase string

const (
	// PhaseIdle means no cycle is executing.
	PhaseIdle SchedulerPhase = "IDLE"

	// PhaseRunning means a cycle is executing.
	PhaseRunning SchedulerPhase = "RUNNING"
)

// State is a point-in-time snapshot of the coordinator. It is safe to
// retain: nothing in it is shared with the scheduler.
type State struct {
	// Phase is IDLE or RUNNING.
	Phase SchedulerPhase `json:"phase"`

	// Interval is the configured cycle interval.
	Interval time.Duration `json:"interval"`

	// LastCycleStartedAt is when the most recent cycle began. Zero until
	// the first cycle runs after startup.
	LastCycleStartedAt time.Time `json:"last_cycle_started_at"`

	// LastCycleFinishedAt is when the most recent cycle finished. Zero
	// while the first cycle is still running.
	LastCycleFinishedAt time.Time `json:"last_cycle_finished_at"`

	// LastCycle is the most recent completed cycle, nil before the first
	// cycle completes.
	LastCycle *CycleSummary `json:"last_cycle,omitempty"`

	// NextCycleAt is when the next scheduled cycle is due.
	NextCycleAt time.Time `json:"next_cycle_at"`

	// CyclesRun counts completed cycles since startup.
	CyclesRun int64 `json:"cycles_run"`

	// CyclesSkipped counts scheduled cycles skipped because their
	// predecessor was still running.
	CyclesSkipped int64 `json:"cycles_skipped"`
}

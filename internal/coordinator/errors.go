// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package coordinator

import (
	"errors"
	"fmt"
)

// ErrCycleInProgress is returned by TriggerNow when a cycle is already
// executing. Cycles never queue behind each other.
var ErrCycleInProgress = errors.New("a backup cycle is already running")

// ErrSchedulerStopped is returned when an operation arrives after the
// scheduler began shutting down.
var ErrSchedulerStopped = errors.New("scheduler is stopped")

// DuplicateTargetError reports a second registration under an existing
// target name. Registration happens at startup, so this error is fatal.
type DuplicateTargetError struct {
	Name string
}

func (e *DuplicateTargetError) Error() string {
	return fmt.Sprintf("target %q is already registered", e.Name)
}

// IsDuplicateTarget reports whether err is a DuplicateTargetError.
func IsDuplicateTarget(err error) bool {
	var dup *DuplicateTargetError
	return errors.As(err, &dup)
}

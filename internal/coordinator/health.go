// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package coordinator

import (
	"fmt"
	"time"
)

// Health is the coordinator's health verdict plus the state it was
// derived from.
type Health struct {
	Healthy bool   `json:"healthy"`
	Reason  string `json:"reason,omitempty"`
	State   State  `json:"state"`
}

// EvaluateHealth applies the health rule to a state snapshot: healthy
// when the last cycle ran at least one target, every snapshot succeeded,
// and the cycle started less than two intervals ago. Everything else is
// unhealthy, including a coordinator that has not completed a cycle yet.
func EvaluateHealth(state State, now time.Time) Health {
	h := Health{State: state}

	cycle := state.LastCycle
	if cycle == nil {
		h.Reason = "no cycle has completed yet"
		return h
	}
	if len(cycle.Records) == 0 {
		h.Reason = "last cycle ran no targets"
		return h
	}
	if _, failed := countOutcomes(cycle.Records); failed > 0 {
		h.Reason = fmt.Sprintf("last cycle had %d failed snapshots", failed)
		return h
	}

	staleAfter := 2 * state.Interval
	if age := now.Sub(state.LastCycleStartedAt); age >= staleAfter {
		h.Reason = fmt.Sprintf("last cycle started %s ago, staleness limit is %s",
			age.Round(time.Second), staleAfter)
		return h
	}

	h.Healthy = true
	return h
}

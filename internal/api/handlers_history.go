// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package api

import (
	"net/http"

	"github.com/tomtom215/archivus/internal/coordinator"
)

const (
	defaultRecordLimit = 100
	defaultCycleLimit  = 50
)

// recordsQuery holds the validated query parameters for GET /records.
type recordsQuery struct {
	Target string `validate:"omitempty,target_name"`
	Limit  int    `validate:"min=1,max=1000"`
}

// recordsPayload is the response body for GET /records.
type recordsPayload struct {
	Count   int                          `json:"count"`
	Target  string                       `json:"target,omitempty"`
	Records []coordinator.SnapshotRecord `json:"records"`
}

// Records returns persisted snapshot records, newest first, optionally
// filtered to one target.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	query := recordsQuery{
		Target: r.URL.Query().Get("target"),
		Limit:  getIntParam(r, "limit", defaultRecordLimit),
	}

	if apiErr := validateRequest(&query); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	// A filter naming an unregistered target is a client mistake, not
	// an empty result.
	if query.Target != "" {
		if _, ok := h.registry.Get(query.Target); !ok {
			respondError(w, r, http.StatusNotFound, "TARGET_NOT_FOUND",
				"no registered target named "+query.Target, nil)
			return
		}
	}

	records, err := h.history.Records(r.Context(), query.Target, query.Limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "HISTORY_READ_FAILED",
			"failed to read snapshot records", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, recordsPayload{
		Count:   len(records),
		Target:  query.Target,
		Records: records,
	})
}

// cyclesQuery holds the validated query parameters for GET /cycles.
type cyclesQuery struct {
	Limit int `validate:"min=1,max=1000"`
}

// cyclesPayload is the response body for GET /cycles.
type cyclesPayload struct {
	Count  int                        `json:"count"`
	Cycles []coordinator.CycleSummary `json:"cycles"`
}

// Cycles returns persisted cycle summaries, newest first.
func (h *Handler) Cycles(w http.ResponseWriter, r *http.Request) {
	query := cyclesQuery{
		Limit: getIntParam(r, "limit", defaultCycleLimit),
	}

	if apiErr := validateRequest(&query); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	cycles, err := h.history.Cycles(r.Context(), query.Limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "HISTORY_READ_FAILED",
			"failed to read cycle summaries", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, cyclesPayload{
		Count:  len(cycles),
		Cycles: cycles,
	})
}

// LastCycle returns the most recent completed cycle, or 404 before the
// first cycle finishes.
func (h *Handler) LastCycle(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.history.LastCycle(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "HISTORY_READ_FAILED",
			"failed to read last cycle", err)
		return
	}
	if cycle == nil {
		respondError(w, r, http.StatusNotFound, "NO_CYCLES",
			"no backup cycle has completed yet", nil)
		return
	}

	respondSuccess(w, r, http.StatusOK, cycle)
}

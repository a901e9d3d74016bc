// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/archivus/internal/coordinator"
	"github.com/tomtom215/archivus/internal/logging"
)

// triggerPayload is the response body for POST /cycle/trigger.
type triggerPayload struct {
	CycleID string `json:"cycle_id"`
	Message string `json:"message"`
}

// TriggerCycle starts a backup cycle outside the schedule. The cycle
// runs asynchronously; 202 means it was accepted, not that it
// finished. A cycle already in flight yields 409 rather than queueing
// a second one.
func (h *Handler) TriggerCycle(w http.ResponseWriter, r *http.Request) {
	cycleID, err := h.coord.TriggerNow()
	if err != nil {
		switch {
		case errors.Is(err, coordinator.ErrCycleInProgress):
			respondError(w, r, http.StatusConflict, "CYCLE_IN_PROGRESS",
				"a backup cycle is already running", nil)
		case errors.Is(err, coordinator.ErrSchedulerStopped):
			respondError(w, r, http.StatusServiceUnavailable, "SCHEDULER_STOPPED",
				"the scheduler is not running", nil)
		default:
			respondError(w, r, http.StatusInternalServerError, "TRIGGER_FAILED",
				"failed to start backup cycle", err)
		}
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("cycle_id", cycleID).
		Str("remote_addr", r.RemoteAddr).
		Msg("Manual backup cycle triggered via API")

	respondSuccess(w, r, http.StatusAccepted, triggerPayload{
		CycleID: cycleID,
		Message: "backup cycle started",
	})
}

// retentionQuery holds the validated query parameters for the
// retention endpoints.
type retentionQuery struct {
	Target string `validate:"omitempty,target_name"`
}

// resolveRetentionTargets maps the optional target parameter to the
// descriptors a retention endpoint should operate on. The bool result
// reports whether a response was already written.
func (h *Handler) resolveRetentionTargets(w http.ResponseWriter, r *http.Request) ([]coordinator.TargetDescriptor, bool) {
	query := retentionQuery{Target: r.URL.Query().Get("target")}

	if apiErr := validateRequest(&query); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return nil, true
	}

	if query.Target == "" {
		return h.registry.List(), false
	}

	desc, ok := h.registry.Get(query.Target)
	if !ok {
		respondError(w, r, http.StatusNotFound, "TARGET_NOT_FOUND",
			"no registered target named "+query.Target, nil)
		return nil, true
	}
	return []coordinator.TargetDescriptor{desc}, false
}

// previewPayload is the response body for GET /retention/preview.
type previewPayload struct {
	Count    int                         `json:"count"`
	Previews []*coordinator.PrunePreview `json:"previews"`
}

// RetentionPreview reports which artifacts the retention rules would
// keep and delete, without deleting anything. Without a target
// parameter it previews every registered target.
func (h *Handler) RetentionPreview(w http.ResponseWriter, r *http.Request) {
	targets, done := h.resolveRetentionTargets(w, r)
	if done {
		return
	}

	previews := make([]*coordinator.PrunePreview, 0, len(targets))
	for _, t := range targets {
		preview, err := h.retention.Preview(r.Context(), t.Name)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, "RETENTION_PREVIEW_FAILED",
				"failed to preview retention for target "+t.Name, err)
			return
		}
		previews = append(previews, preview)
	}

	respondSuccess(w, r, http.StatusOK, previewPayload{
		Count:    len(previews),
		Previews: previews,
	})
}

// sweepPayload is the response body for POST /retention/apply.
type sweepPayload struct {
	Count   int                       `json:"count"`
	Results []coordinator.SweepResult `json:"results"`
}

// RetentionApply runs the retention rules immediately, deleting
// expired artifacts. Without a target parameter it sweeps every
// registered target. Per-artifact delete failures are counted in the
// result rather than failing the request.
func (h *Handler) RetentionApply(w http.ResponseWriter, r *http.Request) {
	targets, done := h.resolveRetentionTargets(w, r)
	if done {
		return
	}

	results := make([]coordinator.SweepResult, 0, len(targets))
	for _, t := range targets {
		result, err := h.retention.Apply(r.Context(), t.Name)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, "RETENTION_APPLY_FAILED",
				"failed to apply retention for target "+t.Name, err)
			return
		}
		results = append(results, *result)
	}

	deleted := 0
	for _, res := range results {
		deleted += res.Deleted
	}
	logging.Ctx(r.Context()).Info().
		Int("targets", len(results)).
		Int("deleted", deleted).
		Str("remote_addr", r.RemoteAddr).
		Msg("Retention sweep triggered via API")

	respondSuccess(w, r, http.StatusOK, sweepPayload{
		Count:   len(results),
		Results: results,
	})
}

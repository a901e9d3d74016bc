// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/archivus/internal/coordinator"
	"github.com/tomtom215/archivus/internal/history"
	"github.com/tomtom215/archivus/internal/middleware"
)

// Coordinator is the scheduler surface the API consumes.
type Coordinator interface {
	State() coordinator.State
	Health() coordinator.Health
	TriggerNow() (string, error)
}

// HistoryStore provides read access to persisted snapshot history.
type HistoryStore interface {
	Records(ctx context.Context, target string, limit int) ([]coordinator.SnapshotRecord, error)
	Cycles(ctx context.Context, limit int) ([]coordinator.CycleSummary, error)
	LastCycle(ctx context.Context) (*coordinator.CycleSummary, error)
	Stats() history.Stats
}

// RetentionManager previews and applies artifact pruning.
type RetentionManager interface {
	Preview(ctx context.Context, target string) (*coordinator.PrunePreview, error)
	Apply(ctx context.Context, target string) (*coordinator.SweepResult, error)
}

// Handler serves the coordinator API. All dependencies must be non-nil.
type Handler struct {
	coord     Coordinator
	registry  *coordinator.Registry
	history   HistoryStore
	retention RetentionManager
	perfmon   *middleware.PerformanceMonitor
	startTime time.Time
	version   string
}

// NewHandler creates an API handler around the coordinator components.
func NewHandler(coord Coordinator, registry *coordinator.Registry, hist HistoryStore, retention RetentionManager, perfmon *middleware.PerformanceMonitor, version string) *Handler {
	return &Handler{
		coord:     coord,
		registry:  registry,
		history:   hist,
		retention: retention,
		perfmon:   perfmon,
		startTime: time.Now(),
		version:   version,
	}
}

// Healthz is the plain-text liveness form of the health verdict: 200
// with "ok" when healthy, 503 with the reason otherwise. It is served
// without authentication so orchestrators can probe it.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	health := h.coord.Health()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	if health.Healthy {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprintln(w, health.Reason)
}

// healthPayload is the JSON form of the health verdict.
type healthPayload struct {
	Healthy       bool              `json:"healthy"`
	Reason        string            `json:"reason,omitempty"`
	Version       string            `json:"version"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	State         coordinator.State `json:"state"`
}

// Health returns the full health verdict with the coordinator state
// behind it. Unlike Healthz this always responds 200; the verdict is
// in the payload.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.coord.Health()

	respondSuccess(w, r, http.StatusOK, healthPayload{
		Healthy:       health.Healthy,
		Reason:        health.Reason,
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		State:         health.State,
	})
}

// State returns the coordinator state: phase, cycle counters, and the
// last completed cycle with its records.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.coord.State())
}

// targetsPayload lists the registered backup targets.
type targetsPayload struct {
	Count   int                            `json:"count"`
	Targets []coordinator.TargetDescriptor `json:"targets"`
}

// Targets returns the registered targets in registration order.
func (h *Handler) Targets(w http.ResponseWriter, r *http.Request) {
	targets := h.registry.List()
	respondSuccess(w, r, http.StatusOK, targetsPayload{
		Count:   len(targets),
		Targets: targets,
	})
}

// statsPayload combines API latency aggregates with history store
// counters.
type statsPayload struct {
	Endpoints []middleware.EndpointStats `json:"endpoints"`
	History   history.Stats              `json:"history"`
}

// Stats returns per-endpoint latency percentiles and history store
// activity for operational dashboards.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, statsPayload{
		Endpoints: h.perfmon.Stats(),
		History:   h.history.Stats(),
	})
}

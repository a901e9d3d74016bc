// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/archivus/internal/coordinator"
	"github.com/tomtom215/archivus/internal/history"
	"github.com/tomtom215/archivus/internal/middleware"
)

// mockCoordinator implements Coordinator for testing.
type mockCoordinator struct {
	stateFunc      func() coordinator.State
	healthFunc     func() coordinator.Health
	triggerNowFunc func() (string, error)
}

func (m *mockCoordinator) State() coordinator.State {
	if m.stateFunc != nil {
		return m.stateFunc()
	}
	return coordinator.State{Phase: coordinator.PhaseIdle}
}

func (m *mockCoordinator) Health() coordinator.Health {
	if m.healthFunc != nil {
		return m.healthFunc()
	}
	return coordinator.Health{Healthy: true}
}

func (m *mockCoordinator) TriggerNow() (string, error) {
	if m.triggerNowFunc != nil {
		return m.triggerNowFunc()
	}
	return "cycle-1", nil
}

// mockHistoryStore implements HistoryStore for testing.
type mockHistoryStore struct {
	recordsFunc   func(ctx context.Context, target string, limit int) ([]coordinator.SnapshotRecord, error)
	cyclesFunc    func(ctx context.Context, limit int) ([]coordinator.CycleSummary, error)
	lastCycleFunc func(ctx context.Context) (*coordinator.CycleSummary, error)
	statsFunc     func() history.Stats
}

func (m *mockHistoryStore) Records(ctx context.Context, target string, limit int) ([]coordinator.SnapshotRecord, error) {
	if m.recordsFunc != nil {
		return m.recordsFunc(ctx, target, limit)
	}
	return nil, nil
}

func (m *mockHistoryStore) Cycles(ctx context.Context, limit int) ([]coordinator.CycleSummary, error) {
	if m.cyclesFunc != nil {
		return m.cyclesFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockHistoryStore) LastCycle(ctx context.Context) (*coordinator.CycleSummary, error) {
	if m.lastCycleFunc != nil {
		return m.lastCycleFunc(ctx)
	}
	return nil, nil
}

func (m *mockHistoryStore) Stats() history.Stats {
	if m.statsFunc != nil {
		return m.statsFunc()
	}
	return history.Stats{}
}

// mockRetention implements RetentionManager for testing.
type mockRetention struct {
	previewFunc func(ctx context.Context, target string) (*coordinator.PrunePreview, error)
	applyFunc   func(ctx context.Context, target string) (*coordinator.SweepResult, error)
}

func (m *mockRetention) Preview(ctx context.Context, target string) (*coordinator.PrunePreview, error) {
	if m.previewFunc != nil {
		return m.previewFunc(ctx, target)
	}
	return &coordinator.PrunePreview{Target: target}, nil
}

func (m *mockRetention) Apply(ctx context.Context, target string) (*coordinator.SweepResult, error) {
	if m.applyFunc != nil {
		return m.applyFunc(ctx, target)
	}
	return &coordinator.SweepResult{Target: target}, nil
}

// newTestHandler builds a handler around mocks and a two-target
// registry.
func newTestHandler(t *testing.T, coord Coordinator, hist HistoryStore, ret RetentionManager) *Handler {
	t.Helper()

	if coord == nil {
		coord = &mockCoordinator{}
	}
	if hist == nil {
		hist = &mockHistoryStore{}
	}
	if ret == nil {
		ret = &mockRetention{}
	}

	registry := coordinator.NewRegistry()
	descriptors := []coordinator.TargetDescriptor{
		{Name: "main-db", Kind: coordinator.KindRelationalDB, DSNEnv: "MAIN_DB_DSN"},
		{Name: "media", Kind: coordinator.KindFileTree, Path: "/srv/media"},
	}
	for _, d := range descriptors {
		if err := registry.Add(d); err != nil {
			t.Fatalf("Add(%s) failed: %v", d.Name, err)
		}
	}

	return NewHandler(coord, registry, hist, ret, middleware.NewPerformanceMonitor(100), "test")
}

// decodeResponse unmarshals the JSON envelope from a recorder.
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()

	var resp APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
	return resp
}

// dataMap extracts the Data field as an object.
func dataMap(t *testing.T, resp APIResponse) map[string]interface{} {
	t.Helper()

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data, got %T", resp.Data)
	}
	return data
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		handler := newTestHandler(t, &mockCoordinator{
			healthFunc: func() coordinator.Health {
				return coordinator.Health{Healthy: true}
			},
		}, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		handler.Healthz(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
		if got := strings.TrimSpace(w.Body.String()); got != "ok" {
			t.Errorf("expected body %q, got %q", "ok", got)
		}
		if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
			t.Errorf("expected Cache-Control no-store, got %q", cc)
		}
	})

	t.Run("unhealthy carries reason", func(t *testing.T) {
		handler := newTestHandler(t, &mockCoordinator{
			healthFunc: func() coordinator.Health {
				return coordinator.Health{Healthy: false, Reason: "last cycle had 2 failed snapshots"}
			},
		}, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		handler.Healthz(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "2 failed snapshots") {
			t.Errorf("expected reason in body, got %q", w.Body.String())
		}
	})
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("unhealthy still responds 200", func(t *testing.T) {
		handler := newTestHandler(t, &mockCoordinator{
			healthFunc: func() coordinator.Health {
				return coordinator.Health{Healthy: false, Reason: "no cycle has completed yet"}
			},
		}, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		w := httptest.NewRecorder()
		handler.Health(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
		resp := decodeResponse(t, w)
		if resp.Status != "success" {
			t.Errorf("expected success status, got %q", resp.Status)
		}
		data := dataMap(t, resp)
		if data["healthy"] != false {
			t.Errorf("expected healthy=false, got %v", data["healthy"])
		}
		if data["reason"] != "no cycle has completed yet" {
			t.Errorf("unexpected reason: %v", data["reason"])
		}
		if data["version"] != "test" {
			t.Errorf("expected version test, got %v", data["version"])
		}
	})
}

func TestState(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockCoordinator{
		stateFunc: func() coordinator.State {
			return coordinator.State{
				Phase:     coordinator.PhaseRunning,
				Interval:  24 * time.Hour,
				CyclesRun: 7,
			}
		},
	}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	w := httptest.NewRecorder()
	handler.State(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := dataMap(t, decodeResponse(t, w))
	if data["phase"] != "RUNNING" {
		t.Errorf("expected phase RUNNING, got %v", data["phase"])
	}
	if data["cycles_run"] != float64(7) {
		t.Errorf("expected cycles_run 7, got %v", data["cycles_run"])
	}
}

func TestTargets(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/targets", nil)
	w := httptest.NewRecorder()
	handler.Targets(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := dataMap(t, decodeResponse(t, w))
	if data["count"] != float64(2) {
		t.Errorf("expected count 2, got %v", data["count"])
	}

	targets, ok := data["targets"].([]interface{})
	if !ok || len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %v", data["targets"])
	}
	first, _ := targets[0].(map[string]interface{})
	if first["name"] != "main-db" {
		t.Errorf("expected registration order preserved, got first=%v", first["name"])
	}
}

func TestRecords(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		var gotTarget string
		var gotLimit int
		handler := newTestHandler(t, nil, &mockHistoryStore{
			recordsFunc: func(ctx context.Context, target string, limit int) ([]coordinator.SnapshotRecord, error) {
				gotTarget, gotLimit = target, limit
				return []coordinator.SnapshotRecord{
					{Target: "main-db", Status: coordinator.StatusSuccess},
				}, nil
			},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
		w := httptest.NewRecorder()
		handler.Records(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if gotTarget != "" || gotLimit != defaultRecordLimit {
			t.Errorf("expected all targets with limit %d, got target=%q limit=%d",
				defaultRecordLimit, gotTarget, gotLimit)
		}
		data := dataMap(t, decodeResponse(t, w))
		if data["count"] != float64(1) {
			t.Errorf("expected count 1, got %v", data["count"])
		}
	})

	t.Run("filtered by target", func(t *testing.T) {
		var gotTarget string
		handler := newTestHandler(t, nil, &mockHistoryStore{
			recordsFunc: func(ctx context.Context, target string, limit int) ([]coordinator.SnapshotRecord, error) {
				gotTarget = target
				return nil, nil
			},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/records?target=media&limit=10", nil)
		w := httptest.NewRecorder()
		handler.Records(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if gotTarget != "media" {
			t.Errorf("expected target media, got %q", gotTarget)
		}
	})

	t.Run("unknown target", func(t *testing.T) {
		handler := newTestHandler(t, nil, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/records?target=nope", nil)
		w := httptest.NewRecorder()
		handler.Records(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
		resp := decodeResponse(t, w)
		if resp.Error == nil || resp.Error.Code != "TARGET_NOT_FOUND" {
			t.Errorf("expected TARGET_NOT_FOUND error, got %+v", resp.Error)
		}
	})

	t.Run("malformed target name", func(t *testing.T) {
		handler := newTestHandler(t, nil, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/records?target=..%2Fetc", nil)
		w := httptest.NewRecorder()
		handler.Records(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		resp := decodeResponse(t, w)
		if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("expected VALIDATION_ERROR, got %+v", resp.Error)
		}
	})

	t.Run("limit out of range", func(t *testing.T) {
		handler := newTestHandler(t, nil, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/records?limit=5000", nil)
		w := httptest.NewRecorder()
		handler.Records(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("store error", func(t *testing.T) {
		handler := newTestHandler(t, nil, &mockHistoryStore{
			recordsFunc: func(ctx context.Context, target string, limit int) ([]coordinator.SnapshotRecord, error) {
				return nil, errors.New("disk exploded")
			},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
		w := httptest.NewRecorder()
		handler.Records(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
	})
}

func TestCycles(t *testing.T) {
	t.Parallel()

	t.Run("default limit", func(t *testing.T) {
		var gotLimit int
		handler := newTestHandler(t, nil, &mockHistoryStore{
			cyclesFunc: func(ctx context.Context, limit int) ([]coordinator.CycleSummary, error) {
				gotLimit = limit
				return []coordinator.CycleSummary{{ID: "c1"}, {ID: "c2"}}, nil
			},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/cycles", nil)
		w := httptest.NewRecorder()
		handler.Cycles(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if gotLimit != defaultCycleLimit {
			t.Errorf("expected limit %d, got %d", defaultCycleLimit, gotLimit)
		}
		data := dataMap(t, decodeResponse(t, w))
		if data["count"] != float64(2) {
			t.Errorf("expected count 2, got %v", data["count"])
		}
	})

	t.Run("explicit limit", func(t *testing.T) {
		var gotLimit int
		handler := newTestHandler(t, nil, &mockHistoryStore{
			cyclesFunc: func(ctx context.Context, limit int) ([]coordinator.CycleSummary, error) {
				gotLimit = limit
				return nil, nil
			},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/cycles?limit=5", nil)
		w := httptest.NewRecorder()
		handler.Cycles(w, req)

		if gotLimit != 5 {
			t.Errorf("expected limit 5, got %d", gotLimit)
		}
	})
}

func TestLastCycle(t *testing.T) {
	t.Parallel()

	t.Run("present", func(t *testing.T) {
		handler := newTestHandler(t, nil, &mockHistoryStore{
			lastCycleFunc: func(ctx context.Context) (*coordinator.CycleSummary, error) {
				return &coordinator.CycleSummary{ID: "c9", AllSucceeded: true}, nil
			},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/cycles/last", nil)
		w := httptest.NewRecorder()
		handler.LastCycle(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		data := dataMap(t, decodeResponse(t, w))
		if data["id"] != "c9" {
			t.Errorf("expected cycle c9, got %v", data["id"])
		}
	})

	t.Run("before first cycle", func(t *testing.T) {
		handler := newTestHandler(t, nil, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/cycles/last", nil)
		w := httptest.NewRecorder()
		handler.LastCycle(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
		resp := decodeResponse(t, w)
		if resp.Error == nil || resp.Error.Code != "NO_CYCLES" {
			t.Errorf("expected NO_CYCLES error, got %+v", resp.Error)
		}
	})
}

func TestTriggerCycle(t *testing.T) {
	t.Parallel()

	t.Run("accepted", func(t *testing.T) {
		handler := newTestHandler(t, &mockCoordinator{
			triggerNowFunc: func() (string, error) {
				return "a1b2c3d4", nil
			},
		}, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/cycle/trigger", nil)
		w := httptest.NewRecorder()
		handler.TriggerCycle(w, req)

		if w.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", w.Code)
		}
		data := dataMap(t, decodeResponse(t, w))
		if data["cycle_id"] != "a1b2c3d4" {
			t.Errorf("expected cycle_id a1b2c3d4, got %v", data["cycle_id"])
		}
	})

	t.Run("cycle in progress", func(t *testing.T) {
		handler := newTestHandler(t, &mockCoordinator{
			triggerNowFunc: func() (string, error) {
				return "", coordinator.ErrCycleInProgress
			},
		}, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/cycle/trigger", nil)
		w := httptest.NewRecorder()
		handler.TriggerCycle(w, req)

		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
		resp := decodeResponse(t, w)
		if resp.Error == nil || resp.Error.Code != "CYCLE_IN_PROGRESS" {
			t.Errorf("expected CYCLE_IN_PROGRESS, got %+v", resp.Error)
		}
	})

	t.Run("scheduler stopped", func(t *testing.T) {
		handler := newTestHandler(t, &mockCoordinator{
			triggerNowFunc: func() (string, error) {
				return "", coordinator.ErrSchedulerStopped
			},
		}, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/cycle/trigger", nil)
		w := httptest.NewRecorder()
		handler.TriggerCycle(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", w.Code)
		}
	})

	t.Run("unexpected error", func(t *testing.T) {
		handler := newTestHandler(t, &mockCoordinator{
			triggerNowFunc: func() (string, error) {
				return "", errors.New("boom")
			},
		}, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/cycle/trigger", nil)
		w := httptest.NewRecorder()
		handler.TriggerCycle(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
	})
}

func TestRetentionPreview(t *testing.T) {
	t.Parallel()

	t.Run("single target", func(t *testing.T) {
		handler := newTestHandler(t, nil, nil, &mockRetention{
			previewFunc: func(ctx context.Context, target string) (*coordinator.PrunePreview, error) {
				return &coordinator.PrunePreview{Target: target, DeletedCount: 3}, nil
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/retention/preview?target=main-db", nil)
		w := httptest.NewRecorder()
		handler.RetentionPreview(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		data := dataMap(t, decodeResponse(t, w))
		if data["count"] != float64(1) {
			t.Errorf("expected count 1, got %v", data["count"])
		}
	})

	t.Run("all targets", func(t *testing.T) {
		var previewed []string
		handler := newTestHandler(t, nil, nil, &mockRetention{
			previewFunc: func(ctx context.Context, target string) (*coordinator.PrunePreview, error) {
				previewed = append(previewed, target)
				return &coordinator.PrunePreview{Target: target}, nil
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/retention/preview", nil)
		w := httptest.NewRecorder()
		handler.RetentionPreview(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if len(previewed) != 2 || previewed[0] != "main-db" || previewed[1] != "media" {
			t.Errorf("expected every registered target previewed in order, got %v", previewed)
		}
	})

	t.Run("unknown target", func(t *testing.T) {
		handler := newTestHandler(t, nil, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/retention/preview?target=nope", nil)
		w := httptest.NewRecorder()
		handler.RetentionPreview(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("preview error", func(t *testing.T) {
		handler := newTestHandler(t, nil, nil, &mockRetention{
			previewFunc: func(ctx context.Context, target string) (*coordinator.PrunePreview, error) {
				return nil, errors.New("sink unreachable")
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/retention/preview", nil)
		w := httptest.NewRecorder()
		handler.RetentionPreview(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
	})
}

func TestRetentionApply(t *testing.T) {
	t.Parallel()

	t.Run("sweeps all targets", func(t *testing.T) {
		handler := newTestHandler(t, nil, nil, &mockRetention{
			applyFunc: func(ctx context.Context, target string) (*coordinator.SweepResult, error) {
				return &coordinator.SweepResult{Target: target, Deleted: 2, ReclaimedBytes: 4096}, nil
			},
		})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/retention/apply", nil)
		w := httptest.NewRecorder()
		handler.RetentionApply(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		data := dataMap(t, decodeResponse(t, w))
		if data["count"] != float64(2) {
			t.Errorf("expected count 2, got %v", data["count"])
		}
		results, ok := data["results"].([]interface{})
		if !ok || len(results) != 2 {
			t.Fatalf("expected 2 results, got %v", data["results"])
		}
		first, _ := results[0].(map[string]interface{})
		if first["deleted"] != float64(2) {
			t.Errorf("expected deleted 2, got %v", first["deleted"])
		}
	})

	t.Run("single target", func(t *testing.T) {
		var applied []string
		handler := newTestHandler(t, nil, nil, &mockRetention{
			applyFunc: func(ctx context.Context, target string) (*coordinator.SweepResult, error) {
				applied = append(applied, target)
				return &coordinator.SweepResult{Target: target}, nil
			},
		})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/retention/apply?target=media", nil)
		w := httptest.NewRecorder()
		handler.RetentionApply(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if len(applied) != 1 || applied[0] != "media" {
			t.Errorf("expected only media swept, got %v", applied)
		}
	})

	t.Run("apply error", func(t *testing.T) {
		handler := newTestHandler(t, nil, nil, &mockRetention{
			applyFunc: func(ctx context.Context, target string) (*coordinator.SweepResult, error) {
				return nil, errors.New("delete failed")
			},
		})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/retention/apply?target=main-db", nil)
		w := httptest.NewRecorder()
		handler.RetentionApply(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
	})
}

func TestStats(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, nil, &mockHistoryStore{
		statsFunc: func() history.Stats {
			return history.Stats{RecordAppends: 12, CycleAppends: 4}
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	handler.Stats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := dataMap(t, decodeResponse(t, w))

	hist, ok := data["history"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected history object, got %v", data["history"])
	}
	if hist["record_appends"] != float64(12) {
		t.Errorf("expected record_appends 12, got %v", hist["record_appends"])
	}
	if _, ok := data["endpoints"]; !ok {
		t.Error("expected endpoints key in stats payload")
	}
}

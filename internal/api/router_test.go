// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/archivus/internal/config"
	"github.com/tomtom215/archivus/internal/coordinator"
)

// newTestRouter wires the full route tree around mock components.
func newTestRouter(t *testing.T, token string) http.Handler {
	t.Helper()

	handler := newTestHandler(t, &mockCoordinator{
		healthFunc: func() coordinator.Health {
			return coordinator.Health{Healthy: true, State: coordinator.State{Phase: coordinator.PhaseIdle}}
		},
	}, nil, nil)

	cfg := config.ServerConfig{
		Enabled:         true,
		Host:            "127.0.0.1",
		Port:            8080,
		Timeout:         30 * time.Second,
		APIToken:        token,
		RateLimitReqs:   100,
		RateLimitWindow: time.Minute,
	}

	return NewRouter(handler, cfg).SetupChi()
}

func TestRouter_HealthzWithoutToken(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected probe to bypass auth, got %d", w.Code)
	}
}

func TestRouter_MetricsWithoutToken(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected scrape to bypass auth, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected Prometheus exposition output")
	}
}

func TestRouter_APIRequiresToken(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "s3cret")

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})
}

func TestRouter_NoTokenConfigured(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected open access without configured token, got %d", w.Code)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for name, want := range headers {
		if got := w.Header().Get(name); got != want {
			t.Errorf("header %s: expected %q, got %q", name, want, got)
		}
	}
}

func TestRouter_RequestIDRoundTrip(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "trace-123" {
		t.Errorf("expected request ID echoed in header, got %q", got)
	}
	resp := decodeResponse(t, w)
	if resp.Metadata.RequestID != "trace-123" {
		t.Errorf("expected request ID in envelope metadata, got %q", resp.Metadata.RequestID)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestRouter_TriggerRejectsGet(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cycle/trigger", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

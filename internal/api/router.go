// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/archivus/internal/config"
	"github.com/tomtom215/archivus/internal/middleware"
)

// Router assembles the HTTP surface from the handler and server
// configuration.
type Router struct {
	handler *Handler
	cfg     config.ServerConfig
}

// NewRouter creates a router for the given handler.
func NewRouter(handler *Handler, cfg config.ServerConfig) *Router {
	return &Router{
		handler: handler,
		cfg:     cfg,
	}
}

// SetupChi builds the chi route tree.
//
// /healthz and /metrics are mounted outside the authenticated group:
// orchestrator probes and Prometheus scrapers do not carry API tokens.
// Everything under /api/v1 is rate limited and, when a token is
// configured, requires Bearer authentication.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(router.cfg.CORSOrigins) > 0 {
		// CORS must be global to handle OPTIONS preflight
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: router.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
			MaxAge:         86400,
		}))
	}

	// Operational endpoints
	r.Get("/healthz", router.handler.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	// Coordinator API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.rateLimit())
		r.Use(securityHeaders())
		r.Use(chimiddleware.Compress(5))
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.handler.perfmon.Middleware)
		r.Use(middleware.BearerAuth(router.cfg.APIToken))

		r.Get("/health", router.handler.Health)
		r.Get("/state", router.handler.State)
		r.Get("/targets", router.handler.Targets)
		r.Get("/records", router.handler.Records)
		r.Get("/cycles", router.handler.Cycles)
		r.Get("/cycles/last", router.handler.LastCycle)
		r.Post("/cycle/trigger", router.handler.TriggerCycle)
		r.Get("/retention/preview", router.handler.RetentionPreview)
		r.Post("/retention/apply", router.handler.RetentionApply)
		r.Get("/stats", router.handler.Stats)
	})

	return r
}

// rateLimit returns an IP-keyed rate limiter, or a no-op middleware
// when limiting is disabled via a non-positive request count.
func (router *Router) rateLimit() func(http.Handler) http.Handler {
	if router.cfg.RateLimitReqs <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.LimitByIP(router.cfg.RateLimitReqs, router.cfg.RateLimitWindow)
}

// securityHeaders returns a middleware that adds security headers to
// API responses.
//
// Headers added:
//   - X-Content-Type-Options: nosniff (prevents MIME type sniffing)
//   - X-Frame-Options: DENY (prevents clickjacking)
//   - Cache-Control: no-store (coordinator state must never be served stale)
//   - Referrer-Policy: strict-origin-when-cross-origin (limits referrer information)
//
// HSTS is added conditionally when the request arrives over HTTPS or
// behind a TLS-terminating proxy.
func securityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

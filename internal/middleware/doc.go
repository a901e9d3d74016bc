// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

/*
Package middleware provides HTTP middleware for the coordinator API.

The chi ecosystem supplies the outer layers of the stack (CORS, rate
limiting, compression); this package adds the pieces that need access
to coordinator internals.

Key Components:

  - RequestID: UUID request tracking wired into the logging context
  - PrometheusMetrics: request/response instrumentation
  - BearerAuth: constant-time static token authentication
  - PerformanceMonitor: per-endpoint latency percentiles for /api/v1/stats

Middleware Stack:

The API router applies middleware in this order:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimiddleware.Compress(5))
	r.Use(cors.Handler(...))
	r.Use(httprate.LimitByIP(...))
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.BearerAuth(token))
	    ...
	})

Health and metrics endpoints sit outside the authenticated group so
probes and scrapers work without credentials.
*/
package middleware

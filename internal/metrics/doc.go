// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

// Package metrics provides Prometheus instrumentation for Archivus.
//
// All metrics are registered on the default registry via promauto and
// exposed on GET /metrics by the API server. The package covers:
//
//   - Snapshot execution (duration, outcome, artifact size per target)
//   - Scheduler cycles (duration, skips, last start and last success)
//   - Retention sweeps (deletions, reclaimed bytes, delete errors)
//   - Sink uploads (duration, bytes, errors, circuit breaker state)
//   - API requests (latency, throughput, in-flight count)
//   - Coordinator health (the same signal served on /healthz)
//
// Components record through the helper functions rather than touching the
// collectors directly, keeping label conventions in one place:
//
//	start := time.Now()
//	rec := executor.Run(ctx, target)
//	metrics.RecordSnapshot(target.Name, string(rec.Status), time.Since(start), rec.SizeBytes)
//
// Timestamps are exported as Unix seconds so alerting rules can compare
// them against time() directly:
//
//	time() - cycle_last_success_timestamp > 2 * 86400
package metrics

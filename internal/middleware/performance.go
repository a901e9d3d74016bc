// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/archivus/internal/logging"
)

// slowRequestThreshold is the latency above which a request is logged.
const slowRequestThreshold = time.Second

// sample is one observed request.
type sample struct {
	route      string
	durationMS int64
	status     int
}

// PerformanceMonitor keeps a sliding window of request latencies and
// aggregates them per route for the stats endpoint. The window bounds
// memory regardless of traffic volume.
type PerformanceMonitor struct {
	mu         sync.RWMutex
	samples    []sample
	maxSamples int
}

// EndpointStats contains aggregated latency statistics for one route.
type EndpointStats struct {
	Route        string  `json:"route"`
	RequestCount int64   `json:"request_count"`
	AvgMS        float64 `json:"avg_ms"`
	P50MS        int64   `json:"p50_ms"`
	P95MS        int64   `json:"p95_ms"`
	P99MS        int64   `json:"p99_ms"`
	MinMS        int64   `json:"min_ms"`
	MaxMS        int64   `json:"max_ms"`
}

// NewPerformanceMonitor creates a monitor holding at most maxSamples
// observations.
func NewPerformanceMonitor(maxSamples int) *PerformanceMonitor {
	return &PerformanceMonitor{
		samples:    make([]sample, 0, maxSamples),
		maxSamples: maxSamples,
	}
}

// record adds one observation to the sliding window.
func (pm *PerformanceMonitor) record(s sample) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.samples = append(pm.samples, s)
	if len(pm.samples) > pm.maxSamples {
		pm.samples = pm.samples[1:]
	}
}

// Stats aggregates the current window per route, busiest route first.
func (pm *PerformanceMonitor) Stats() []EndpointStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	byRoute := make(map[string][]int64)
	for _, s := range pm.samples {
		byRoute[s.route] = append(byRoute[s.route], s.durationMS)
	}

	stats := make([]EndpointStats, 0, len(byRoute))
	for route, durations := range byRoute {
		sorted := make([]int64, len(durations))
		copy(sorted, durations)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, d := range sorted {
			sum += d
		}

		stats = append(stats, EndpointStats{
			Route:        route,
			RequestCount: int64(len(sorted)),
			AvgMS:        float64(sum) / float64(len(sorted)),
			P50MS:        percentile(sorted, 0.50),
			P95MS:        percentile(sorted, 0.95),
			P99MS:        percentile(sorted, 0.99),
			MinMS:        sorted[0],
			MaxMS:        sorted[len(sorted)-1],
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].RequestCount > stats[j].RequestCount
	})

	return stats
}

// Middleware observes every request passing through it and warns about
// requests slower than slowRequestThreshold.
func (pm *PerformanceMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		pm.record(sample{
			route:      r.Method + " " + r.URL.Path,
			durationMS: duration.Milliseconds(),
			status:     rec.status,
		})

		if duration > slowRequestThreshold {
			logging.Warn().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", duration).
				Msg("Slow request detected")
		}
	})
}

// percentile returns the value at quantile p from a sorted slice.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}

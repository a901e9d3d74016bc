// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

/*
Package coordinator: scheduler loop.

The scheduler owns the coordinator state machine. It ticks on a fixed
interval anchored to cycle starts, runs at most one cycle at a time, and
skips a tick outright when the previous cycle is still running. Manual
triggers share the same single-cycle admission but never move the
schedule.

Shutdown is two phase. When the serve context is canceled the scheduler
stops ticking and waits up to the configured grace period for a running
cycle to finish on its own; past the grace deadline the cycle context is
canceled and in-flight snapshot attempts terminate as failure records.
*/
//nolint:staticcheck // File documentation, not package doc
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/archivus/internal/config"
	"github.com/tomtom215/archivus/internal/logging"
	"github.com/tomtom215/archivus/internal/metrics"
)

// History persists snapshot records and cycle summaries. Persistence is
// best effort: a history failure never fails the cycle that produced the
// data.
type History interface {
	AppendRecord(ctx context.Context, rec SnapshotRecord) error
	AppendCycle(ctx context.Context, summary CycleSummary) error
}

// Notifier delivers cycle outcome notifications.
type Notifier interface {
	NotifyCycle(ctx context.Context, summary CycleSummary) error
}

// persistAbortTimeout bounds history writes for a force-aborted cycle,
// whose own context is already canceled.
const persistAbortTimeout = 5 * time.Second

// Scheduler drives the backup loop: tick, run cycle, record outcome.
// History, notifier, and retention are optional; a nil value disables
// that concern.
type Scheduler struct {
	registry  *Registry
	executor  *Executor
	retention *Retention
	history   History
	notifier  Notifier

	interval      time.Duration
	maxConcurrent int
	grace         time.Duration

	mu    sync.RWMutex
	state State

	// cycleMu guards cycle admission: at most one cycle, scheduled or
	// manual, runs at a time.
	cycleMu     sync.Mutex
	cycleActive bool
	cycleCancel context.CancelFunc
	cycleDone   chan struct{}

	servingMu sync.Mutex
	serving   bool
}

// NewScheduler wires a scheduler from its parts. retention, history, and
// notifier may be nil.
func NewScheduler(cfg *config.Config, registry *Registry, executor *Executor, retention *Retention, history History, notifier Notifier) *Scheduler {
	return &Scheduler{
		registry:      registry,
		executor:      executor,
		retention:     retention,
		history:       history,
		notifier:      notifier,
		interval:      cfg.Scheduler.Interval(),
		maxConcurrent: cfg.Scheduler.MaxConcurrent,
		grace:         cfg.Scheduler.ShutdownGrace,
		state: State{
			Phase:    PhaseIdle,
			Interval: cfg.Scheduler.Interval(),
		},
	}
}

// Serve implements suture.Service. It runs the first cycle immediately,
// then ticks every interval, anchored to the tick chain rather than to
// cycle completion so a slow cycle cannot drift the schedule.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.setServing(true)
	defer s.setServing(false)

	logging.Info().
		Dur("interval", s.interval).
		Int("targets", s.registry.Len()).
		Int("max_concurrent", s.maxConcurrent).
		Msg("Scheduler started")

	next := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.setServing(false)
			return s.drain(ctx.Err())
		case <-timer.C:
		}

		if _, ok := s.beginCycle(TriggerScheduled); !ok {
			logging.Warn().
				Time("due", next).
				Msg("Previous backup cycle still running, skipping this cycle")
			metrics.RecordCycleSkipped()
			s.mu.Lock()
			s.state.CyclesSkipped++
			s.mu.Unlock()
		}

		next = next.Add(s.interval)
		s.mu.Lock()
		s.state.NextCycleAt = next
		s.mu.Unlock()
		timer.Reset(time.Until(next))
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *Scheduler) String() string {
	return "backup-scheduler"
}

// TriggerNow starts a cycle outside the schedule and returns its ID.
// Returns ErrCycleInProgress when a cycle is already running and
// ErrSchedulerStopped when the loop is not serving. A manual cycle does
// not re-anchor the schedule.
func (s *Scheduler) TriggerNow() (string, error) {
	if !s.isServing() {
		return "", ErrSchedulerStopped
	}
	id, ok := s.beginCycle(TriggerManual)
	if !ok {
		return "", ErrCycleInProgress
	}
	return id, nil
}

// State returns a copy of the coordinator state. The copy shares nothing
// with the scheduler and is safe to retain.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	if st.LastCycle != nil {
		cycle := *st.LastCycle
		cycle.Records = append([]SnapshotRecord(nil), st.LastCycle.Records...)
		st.LastCycle = &cycle
	}
	return st
}

// Health evaluates the coordinator's health from its current state.
func (s *Scheduler) Health() Health {
	return EvaluateHealth(s.State(), time.Now().UTC())
}

// beginCycle admits at most one cycle at a time. On success the cycle
// runs in its own goroutine with a context independent of the serve
// context, so shutdown can grant it a grace period.
func (s *Scheduler) beginCycle(trigger CycleTrigger) (string, bool) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	if s.cycleActive {
		return "", false
	}

	id := uuid.NewString()
	cycleCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.cycleActive = true
	s.cycleCancel = cancel
	s.cycleDone = done

	go func() {
		defer close(done)
		defer s.endCycle()
		defer cancel()
		s.runCycle(cycleCtx, id, trigger)
	}()
	return id, true
}

func (s *Scheduler) endCycle() {
	s.cycleMu.Lock()
	s.cycleActive = false
	s.cycleMu.Unlock()
}

// drain waits for a running cycle to finish before returning. Past the
// grace deadline the cycle context is canceled and in-flight attempts
// finish as failure records.
func (s *Scheduler) drain(cause error) error {
	s.cycleMu.Lock()
	active := s.cycleActive
	done := s.cycleDone
	cancel := s.cycleCancel
	s.cycleMu.Unlock()

	if !active {
		logging.Info().Msg("Scheduler stopped")
		return cause
	}

	logging.Info().Dur("grace", s.grace).Msg("Waiting for running backup cycle to finish")

	graceTimer := time.NewTimer(s.grace)
	defer graceTimer.Stop()

	select {
	case <-done:
		logging.Info().Msg("Scheduler stopped after cycle completed")
		return cause
	case <-graceTimer.C:
	}

	logging.Warn().Dur("grace", s.grace).Msg("Shutdown grace expired, aborting backup cycle")
	cancel()
	<-done
	logging.Info().Msg("Scheduler stopped after aborting cycle")
	return cause
}

// runCycle executes one full cycle: snapshot every registered target,
// publish the summary, sweep retention, and notify on failure.
func (s *Scheduler) runCycle(ctx context.Context, id string, trigger CycleTrigger) {
	targets := s.registry.List()
	started := time.Now().UTC()

	s.mu.Lock()
	s.state.Phase = PhaseRunning
	s.state.LastCycleStartedAt = started
	s.mu.Unlock()

	metrics.RecordCycleStart(started)
	logging.Info().
		Str("cycle_id", id).
		Str("trigger", string(trigger)).
		Int("targets", len(targets)).
		Msg("Backup cycle started")

	records := s.snapshotAll(ctx, targets)

	finished := time.Now().UTC()
	summary := CycleSummary{
		ID:           id,
		Trigger:      trigger,
		StartedAt:    started,
		FinishedAt:   finished,
		Duration:     finished.Sub(started),
		Records:      records,
		AllSucceeded: allSucceeded(records),
	}

	s.mu.Lock()
	s.state.Phase = PhaseIdle
	s.state.LastCycleFinishedAt = finished
	s.state.LastCycle = &summary
	s.state.CyclesRun++
	s.mu.Unlock()

	s.persist(ctx, summary)

	if s.retention != nil {
		s.retention.Sweep(ctx, targets)
	}

	if s.notifier != nil && !summary.AllSucceeded {
		err := s.notifier.NotifyCycle(ctx, summary)
		metrics.RecordNotification(err)
		if err != nil {
			logging.Warn().Err(err).Str("cycle_id", id).Msg("Failed to send cycle notification")
		}
	}

	metrics.RecordCycleEnd(summary.Duration, summary.AllSucceeded)
	metrics.SetHealthy(s.Health().Healthy)

	succeeded, failed := countOutcomes(records)
	logging.Info().
		Str("cycle_id", id).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Dur("duration", summary.Duration).
		Msg("Backup cycle completed")
}

// snapshotAll runs every target, at most maxConcurrent at a time, and
// returns records in registration order regardless of completion order.
func (s *Scheduler) snapshotAll(ctx context.Context, targets []TargetDescriptor) []SnapshotRecord {
	records := make([]SnapshotRecord, len(targets))
	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)
		go func(i int, target TargetDescriptor) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			records[i] = s.executor.Run(ctx, target)
		}(i, target)
	}
	wg.Wait()
	return records
}

// persist appends the cycle's records and summary to history. A cycle
// aborted at shutdown persists under a short background context because
// its own context is already canceled.
func (s *Scheduler) persist(ctx context.Context, summary CycleSummary) {
	if s.history == nil {
		return
	}

	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), persistAbortTimeout)
		defer cancel()
	}

	for _, rec := range summary.Records {
		if err := s.history.AppendRecord(ctx, rec); err != nil {
			logging.Warn().Err(err).Str("target", rec.Target).Msg("Failed to persist snapshot record")
		}
	}
	if err := s.history.AppendCycle(ctx, summary); err != nil {
		logging.Warn().Err(err).Str("cycle_id", summary.ID).Msg("Failed to persist cycle summary")
	}
}

func (s *Scheduler) setServing(v bool) {
	s.servingMu.Lock()
	s.serving = v
	s.servingMu.Unlock()
}

func (s *Scheduler) isServing() bool {
	s.servingMu.Lock()
	defer s.servingMu.Unlock()
	return s.serving
}

// allSucceeded reports whether the cycle is a full success: at least one
// record and none failed.
func allSucceeded(records []SnapshotRecord) bool {
	if len(records) == 0 {
		return false
	}
	for _, rec := range records {
		if !rec.Succeeded() {
			return false
		}
	}
	return true
}

func countOutcomes(records []SnapshotRecord) (succeeded, failed int) {
	for _, rec := range records {
		if rec.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

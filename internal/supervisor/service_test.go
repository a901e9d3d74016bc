// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func TestServiceInterface(t *testing.T) {
	// MockService must satisfy suture.Service
	var _ suture.Service = (*MockService)(nil)
}

func TestMockService(t *testing.T) {
	t.Run("blocks until context canceled", func(t *testing.T) {
		svc := NewMockService("blocker")

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		time.Sleep(20 * time.Millisecond)
		if svc.StartCount() != 1 {
			t.Errorf("expected 1 start, got %d", svc.StartCount())
		}
		if svc.StopCount() != 0 {
			t.Errorf("expected 0 stops while running, got %d", svc.StopCount())
		}

		cancel()
		select {
		case err := <-done:
			if err != context.Canceled {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("service did not stop")
		}

		if svc.StopCount() != 1 {
			t.Errorf("expected 1 stop, got %d", svc.StopCount())
		}
	})

	t.Run("returns configured error immediately", func(t *testing.T) {
		svc := NewMockService("fails")
		svc.SetError(context.DeadlineExceeded)

		err := svc.Serve(context.Background())
		if err != context.DeadlineExceeded {
			t.Errorf("expected configured error, got %v", err)
		}
	})

	t.Run("fails configured number of times", func(t *testing.T) {
		svc := NewMockService("flaky")
		svc.SetFailCount(2)

		if err := svc.Serve(context.Background()); err == nil {
			t.Error("expected first call to fail")
		}
		if err := svc.Serve(context.Background()); err == nil {
			t.Error("expected second call to fail")
		}

		// Third call succeeds and blocks
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		if err := svc.Serve(ctx); err != context.DeadlineExceeded {
			t.Errorf("expected third call to block until deadline, got %v", err)
		}
	})
}

func TestErrDoNotRestart(t *testing.T) {
	// A service returning suture.ErrDoNotRestart is dropped from the
	// supervisor instead of being restarted.
	tree, err := NewSupervisorTree(testLogger(), TreeConfig{
		FailureBackoff:  50 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create tree: %v", err)
	}

	svc := NewMockService("one-shot")
	svc.SetError(suture.ErrDoNotRestart)
	tree.AddSchedulerService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	// Give the supervisor a few restart windows, then verify the
	// service was started exactly once.
	time.Sleep(300 * time.Millisecond)
	if got := svc.StartCount(); got != 1 {
		t.Errorf("expected exactly 1 start for ErrDoNotRestart, got %d", got)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Error("tree did not stop after cancellation")
	}
}

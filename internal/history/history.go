// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/archivus/internal/config"
	"github.com/tomtom215/archivus/internal/coordinator"
	"github.com/tomtom215/archivus/internal/logging"
	"github.com/tomtom215/archivus/internal/metrics"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("history store is closed")

// Key prefixes for the two entry types.
const (
	prefixRecord = "rec:"
	prefixCycle  = "cyc:"
)

// gcInterval is how often the value log GC pass runs.
const gcInterval = time.Hour

// Store persists snapshot history in BadgerDB. It is safe for concurrent
// use.
type Store struct {
	db  *badger.DB
	ttl time.Duration

	mu     sync.RWMutex
	closed bool

	recordAppends atomic.Int64
	cycleAppends  atomic.Int64

	gcStop chan struct{}
	gcDone chan struct{}
}

// Stats describes store activity since startup.
type Stats struct {
	// RecordAppends counts snapshot records written.
	RecordAppends int64 `json:"record_appends"`

	// CycleAppends counts cycle summaries written.
	CycleAppends int64 `json:"cycle_appends"`

	// LSMBytes is the size of Badger's LSM tree on disk.
	LSMBytes int64 `json:"lsm_bytes"`

	// VLogBytes is the size of Badger's value log on disk.
	VLogBytes int64 `json:"vlog_bytes"`
}

// Open opens (or creates) the history database at cfg.Path.
func Open(cfg config.HistoryConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = true
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	s := &Store{
		db:     db,
		ttl:    cfg.Retention,
		gcStop: make(chan struct{}),
		gcDone: make(chan struct{}),
	}
	go s.gcLoop()

	logging.Info().
		Str("path", cfg.Path).
		Dur("retention", cfg.Retention).
		Msg("History store opened")
	return s, nil
}

// AppendRecord persists one snapshot attempt.
func (s *Store) AppendRecord(ctx context.Context, rec coordinator.SnapshotRecord) error {
	key := fmt.Sprintf("%s%020d:%s", prefixRecord, rec.FinishedAt.UnixNano(), rec.Target)
	if err := s.append(ctx, key, rec); err != nil {
		return err
	}
	s.recordAppends.Add(1)
	return nil
}

// AppendCycle persists one cycle summary.
func (s *Store) AppendCycle(ctx context.Context, cyc coordinator.CycleSummary) error {
	key := fmt.Sprintf("%s%020d", prefixCycle, cyc.StartedAt.UnixNano())
	if err := s.append(ctx, key, cyc); err != nil {
		return err
	}
	s.cycleAppends.Add(1)
	return nil
}

func (s *Store) append(ctx context.Context, key string, v interface{}) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		metrics.RecordHistoryWriteError()
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		metrics.RecordHistoryWriteError()
		return fmt.Errorf("failed to write history entry: %w", err)
	}
	return nil
}

// Records returns snapshot records, newest first. A non-empty target
// restricts results to that target. Limit caps the result; values below 1
// use a default of 100.
func (s *Store) Records(ctx context.Context, target string, limit int) ([]coordinator.SnapshotRecord, error) {
	if limit < 1 {
		limit = 100
	}

	records := []coordinator.SnapshotRecord{}
	err := s.reverseScan(ctx, prefixRecord, func(val []byte) (bool, error) {
		var rec coordinator.SnapshotRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return false, fmt.Errorf("failed to unmarshal snapshot record: %w", err)
		}
		if target != "" && rec.Target != target {
			return true, nil
		}
		records = append(records, rec)
		return len(records) < limit, nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Cycles returns cycle summaries, newest first. Limit caps the result;
// values below 1 use a default of 20.
func (s *Store) Cycles(ctx context.Context, limit int) ([]coordinator.CycleSummary, error) {
	if limit < 1 {
		limit = 20
	}

	cycles := []coordinator.CycleSummary{}
	err := s.reverseScan(ctx, prefixCycle, func(val []byte) (bool, error) {
		var cyc coordinator.CycleSummary
		if err := json.Unmarshal(val, &cyc); err != nil {
			return false, fmt.Errorf("failed to unmarshal cycle summary: %w", err)
		}
		cycles = append(cycles, cyc)
		return len(cycles) < limit, nil
	})
	if err != nil {
		return nil, err
	}
	return cycles, nil
}

// LastCycle returns the most recent cycle summary, or nil when no cycle
// has been recorded.
func (s *Store) LastCycle(ctx context.Context) (*coordinator.CycleSummary, error) {
	cycles, err := s.Cycles(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(cycles) == 0 {
		return nil, nil
	}
	return &cycles[0], nil
}

// reverseScan visits values under prefix from newest key to oldest. The
// visit callback returns false to stop early.
func (s *Store) reverseScan(ctx context.Context, prefix string, visit func(val []byte) (bool, error)) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	pfx := []byte(prefix)
	// Seek target sorts after every key carrying the prefix.
	seek := append(append([]byte{}, pfx...), 0xFF)

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(pfx); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var keepGoing bool
			err := it.Item().Value(func(val []byte) error {
				var visitErr error
				keepGoing, visitErr = visit(val)
				return visitErr
			})
			if err != nil {
				return err
			}
			if !keepGoing {
				return nil
			}
		}
		return nil
	})
}

// Stats returns store activity counters and on-disk sizes.
func (s *Store) Stats() Stats {
	lsm, vlog := s.db.Size()
	return Stats{
		RecordAppends: s.recordAppends.Load(),
		CycleAppends:  s.cycleAppends.Load(),
		LSMBytes:      lsm,
		VLogBytes:     vlog,
	}
}

// Close stops the GC loop and closes the database. Further operations
// return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.gcStop)
	<-s.gcDone

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close history database: %w", err)
	}
	return nil
}

// gcLoop reclaims value log space periodically. badger.ErrNoRewrite just
// means there was nothing to collect.
func (s *Store) gcLoop() {
	defer close(s.gcDone)

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logging.Warn().Err(err).Msg("History value log GC failed")
			}
		}
	}
}

// Package syncer decides whether a run's batch is committed to the
// shared store, performs the bounded idempotent upsert, and owns the
// dedup history and pending-batch buffer lifecycles.
package syncer

import (
	"context"
	"time"

	"event-radar/ingester/internal/config"
	"event-radar/ingester/internal/logging"
	"event-radar/ingester/internal/metrics"
	"event-radar/ingester/internal/model"
	"event-radar/ingester/internal/store"
)

// State of the post-fetch pipeline, surfaced for logging. Transitions
// are linear: IDLE -> VALIDATING -> DEDUPLICATING -> DECIDING_SYNC ->
// SYNCING|SKIPPED -> DONE.
type State string

const (
	StateIdle          State = "IDLE"
	StateValidating    State = "VALIDATING"
	StateDeduplicating State = "DEDUPLICATING"
	StateDeciding      State = "DECIDING_SYNC"
	StateSyncing       State = "SYNCING"
	StateSkipped       State = "SKIPPED"
	StateDone          State = "DONE"
)

// Report is the sync stage's contribution to the run summary.
type Report struct {
	Decision  model.SyncDecision
	Attempted int
	Succeeded int
	Failed    int
	Buffered  int
	Pruned    int
}

type Syncer struct {
	events store.EventStore
	buffer store.Buffer
	cfg    config.SyncConfig

	state State
	now   func() time.Time
}

func New(events store.EventStore, buffer store.Buffer, cfg config.SyncConfig) *Syncer {
	return &Syncer{
		events: events,
		buffer: buffer,
		cfg:    cfg,
		state:  StateIdle,
		now:    time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *Syncer) WithClock(now func() time.Time) *Syncer {
	s.now = now
	return s
}

func (s *Syncer) State() State { return s.state }

// Transition is called by the orchestrator for the pre-sync stages it
// owns (VALIDATING, DEDUPLICATING); Run drives the rest.
func (s *Syncer) Transition(st State) { s.transition(st) }

func (s *Syncer) transition(st State) {
	logging.Debug().Str("from", string(s.state)).Str("to", string(st)).Msg("sync state")
	s.state = st
}

// shouldSync applies the cadence: 0 never, 1 every run, 2..4 every
// Nth run, 5 and up always.
func shouldSync(mode, counter int) bool {
	switch {
	case mode <= 0:
		return false
	case mode == 1:
		return true
	case mode <= 4:
		return counter%mode == 0
	default:
		return true
	}
}

// Run executes DECIDING_SYNC onward for one invocation. The counter
// advances every invocation regardless of the decision. History is
// only mutated for records confirmed upserted, so a store outage
// leaves them eligible for retry on the next run.
func (s *Syncer) Run(ctx context.Context, batch []model.CanonicalEvent, hist *store.History) (Report, error) {
	s.transition(StateDeciding)
	var rep Report

	rep.Pruned = hist.Prune(s.cfg.Retention, s.now())
	counter := hist.IncrCounter()

	if !shouldSync(s.cfg.Mode, counter) {
		s.transition(StateSkipped)
		if s.cfg.Mode <= 0 {
			rep.Decision = model.SyncDisabled
		} else {
			rep.Decision = model.SyncSkipped
		}
		buffered, err := s.stash(batch)
		rep.Buffered = buffered
		s.transition(StateDone)
		return rep, err
	}

	s.transition(StateSyncing)
	rep.Decision = model.SyncSynced

	pending, err := s.buffer.Load()
	if err != nil {
		return rep, err
	}
	pending = append(pending, batch...)
	rep.Attempted = len(pending)

	var unsynced []model.CanonicalEvent
	for start := 0; start < len(pending); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]

		res, err := s.upsertWithRetry(ctx, chunk)
		if err != nil {
			// Whole chunk deferred to the next run; never aborts the
			// remaining chunks.
			logging.Error().Err(err).Int("records", len(chunk)).Msg("batch upsert failed, deferring")
			rep.Failed += len(chunk)
			metrics.SyncFailures.Add(float64(len(chunk)))
			unsynced = append(unsynced, chunk...)
			continue
		}
		rep.Succeeded += res.Succeeded
		metrics.SyncedEvents.Add(float64(res.Succeeded))
		for _, ev := range chunk {
			hist.Observe(ev.EventHash, ev.Link, s.now())
		}
	}

	// The buffer only holds what still needs committing.
	if len(unsynced) > 0 {
		if err := s.buffer.Save(unsynced); err != nil {
			return rep, err
		}
	} else if err := s.buffer.Clear(); err != nil {
		return rep, err
	}

	s.transition(StateDone)
	return rep, nil
}

// stash appends the batch to the persisted buffer and returns the
// total number of events now waiting.
func (s *Syncer) stash(batch []model.CanonicalEvent) (int, error) {
	pending, err := s.buffer.Load()
	if err != nil {
		return 0, err
	}
	pending = append(pending, batch...)
	if err := s.buffer.Save(pending); err != nil {
		return 0, err
	}
	return len(pending), nil
}

// upsertWithRetry tries a chunk once, and once more after a backoff
// pause for transient store errors.
func (s *Syncer) upsertWithRetry(ctx context.Context, chunk []model.CanonicalEvent) (store.UpsertResult, error) {
	res, err := s.events.UpsertBatch(ctx, chunk)
	if err == nil {
		return res, nil
	}
	logging.Warn().Err(err).Msg("upsert failed, retrying once")
	select {
	case <-time.After(s.cfg.RetryDelay):
	case <-ctx.Done():
		return res, ctx.Err()
	}
	return s.events.UpsertBatch(ctx, chunk)
}

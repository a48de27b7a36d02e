// Package pipeline drives one ingestion invocation end to end:
// parallel per-(source, locality) fetches, then the sequential
// normalize -> dedup -> sync chain over the fully-collected batch.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"event-radar/ingester/internal/config"
	"event-radar/ingester/internal/dedup"
	"event-radar/ingester/internal/fetch"
	"event-radar/ingester/internal/logging"
	"event-radar/ingester/internal/metrics"
	"event-radar/ingester/internal/model"
	"event-radar/ingester/internal/normalize"
	"event-radar/ingester/internal/source"
	"event-radar/ingester/internal/store"
	"event-radar/ingester/internal/syncer"
)

type task struct {
	src      source.Source
	locality string
}

type Orchestrator struct {
	cfg     config.Config
	tasks   []task
	engine  *dedup.Engine
	syncer  *syncer.Syncer
	history store.HistoryStore
	now     func() time.Time
}

// New wires the orchestrator from config. The event store is injected
// so main owns its lifetime.
func New(cfg config.Config, events store.EventStore) (*Orchestrator, error) {
	chain := fetch.NewChain(cfg.Fetch, cfg.Render)

	var tasks []task
	for _, sc := range cfg.Sources {
		// One limiter per source: localities of the same site share
		// its rate budget.
		limiter := rate.NewLimiter(rate.Limit(cfg.Fetch.RatePerSecond), cfg.Fetch.Burst)
		src, err := source.New(model.Source(sc.Type), source.Deps{
			Chain:   chain,
			Limiter: limiter,
			BaseURL: sc.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		for _, loc := range sc.Localities {
			tasks = append(tasks, task{src: src, locality: loc})
		}
	}

	buffer := &store.FileBuffer{Path: cfg.Sync.BufferPath}
	return &Orchestrator{
		cfg:     cfg,
		tasks:   tasks,
		engine:  dedup.New(cfg.Dedup),
		syncer:  syncer.New(events, buffer, cfg.Sync),
		history: &store.FileHistoryStore{Path: cfg.Sync.HistoryPath},
		now:     time.Now,
	}, nil
}

// RunOnce performs one full invocation and returns its summary. Only
// state-persistence problems surface as errors; fetch, validation and
// per-record sync failures are absorbed into the summary.
func (o *Orchestrator) RunOnce(ctx context.Context) (model.RunSummary, error) {
	start := o.now()
	summary := model.RunSummary{
		RunID:             uuid.NewString(),
		Started:           start,
		ValidationDropped: map[string]int{},
		DedupDropped:      map[string]int{},
	}
	log := logging.L().With().Str("run_id", summary.RunID).Logger()

	hist, err := o.history.Load()
	if err != nil {
		return summary, err
	}

	raw := o.fetchAll(ctx, &summary)
	summary.Fetched = len(raw)
	log.Info().Int("records", len(raw)).Int("tasks", len(o.tasks)).Msg("fetch phase done")

	o.syncer.Transition(syncer.StateValidating)
	batch := make([]model.CanonicalEvent, 0, len(raw))
	for _, r := range raw {
		ev, err := normalize.Normalize(r, o.now())
		if err != nil {
			var verr *normalize.ValidationError
			reason := "unknown"
			if errors.As(err, &verr) {
				reason = string(verr.Reason)
			}
			summary.ValidationDropped[reason]++
			metrics.ValidationDrops.WithLabelValues(reason).Inc()
			log.Debug().Str("source", string(r.Source)).Str("reason", reason).Msg("record dropped")
			continue
		}
		batch = append(batch, ev)
	}

	o.syncer.Transition(syncer.StateDeduplicating)
	kept, dropped := o.engine.Deduplicate(batch, hist)
	for _, d := range dropped {
		summary.DedupDropped[string(d.Reason)]++
		metrics.DedupDrops.WithLabelValues(string(d.Reason)).Inc()
		log.Debug().
			Str("source", string(d.Event.Source)).
			Str("reason", string(d.Reason)).
			Str("duplicate_of", d.DuplicateOf).
			Msg("duplicate dropped")
	}
	summary.Kept = len(kept)

	// DECIDING_SYNC onward
	rep, syncErr := o.syncer.Run(ctx, kept, hist)
	summary.Decision = rep.Decision
	summary.SyncAttempted = rep.Attempted
	summary.SyncSucceeded = rep.Succeeded
	summary.SyncFailed = rep.Failed
	summary.Buffered = rep.Buffered
	summary.PrunedHistory = rep.Pruned

	if err := o.history.Save(hist); err != nil {
		return summary, err
	}

	summary.Elapsed = o.now().Sub(start)
	metrics.RunDuration.Observe(summary.Elapsed.Seconds())
	log.Info().
		Int("fetched", summary.Fetched).
		Interface("validation_dropped", summary.ValidationDropped).
		Interface("dedup_dropped", summary.DedupDropped).
		Int("kept", summary.Kept).
		Str("decision", string(summary.Decision)).
		Int("synced", summary.SyncSucceeded).
		Int("sync_failed", summary.SyncFailed).
		Int("buffered", summary.Buffered).
		Dur("elapsed", summary.Elapsed).
		Msg("run finished")

	return summary, syncErr
}

// fetchAll runs every (source, locality) task on a bounded worker
// pool. The run deadline cancels tasks that have not started or
// finished, but whatever was fetched still flows downstream. Results
// are reassembled in task order so the batch order, and therefore the
// dedup outcome, is deterministic.
func (o *Orchestrator) fetchAll(ctx context.Context, summary *model.RunSummary) []model.RawRecord {
	fctx, cancel := context.WithTimeout(ctx, o.cfg.Fetch.RunDeadline)
	defer cancel()

	results := make([][]model.RawRecord, len(o.tasks))
	outcomes := make([]model.FetchOutcome, len(o.tasks))

	sem := make(chan struct{}, o.cfg.Fetch.MaxWorkers)
	var wg sync.WaitGroup
	for i, t := range o.tasks {
		wg.Add(1)
		go func(i int, t task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if fctx.Err() != nil {
				outcomes[i] = model.FetchOutcome{
					Source:   t.src.Name(),
					Locality: t.locality,
					Status:   model.FetchFailed,
					Failure:  fetch.FailTimeout,
				}
				return
			}
			recs, out := t.src.Fetch(fctx, t.locality)
			results[i] = recs
			outcomes[i] = out
		}(i, t)
	}
	wg.Wait()

	var raw []model.RawRecord
	for i := range o.tasks {
		out := outcomes[i]
		metrics.FetchTotal.WithLabelValues(string(out.Source), string(out.Status)).Inc()
		metrics.RecordsScraped.WithLabelValues(string(out.Source)).Add(float64(out.Records))
		summary.Outcomes = append(summary.Outcomes, out)
		if out.Status == model.FetchFailed {
			logging.Warn().
				Str("source", string(out.Source)).
				Str("locality", out.Locality).
				Str("failure", out.Failure).
				Msg("fetch task failed")
			continue
		}
		raw = append(raw, results[i]...)
	}
	return raw
}

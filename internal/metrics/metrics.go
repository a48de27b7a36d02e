// Package metrics exposes the pipeline's Prometheus collectors. The
// optional /metrics endpoint is served only when a listen address is
// configured; counters are cheap either way.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingester",
		Name:      "fetch_tasks_total",
		Help:      "Fetch tasks by source and terminal status",
	}, []string{"source", "status"})

	FetchFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingester",
		Name:      "fetch_fallback_attempts_total",
		Help:      "Failed fetch attempts by strategy and failure class",
	}, []string{"strategy", "failure"})

	RecordsScraped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingester",
		Name:      "records_scraped_total",
		Help:      "Raw records collected per source",
	}, []string{"source"})

	ValidationDrops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingester",
		Name:      "validation_drops_total",
		Help:      "Records dropped by the normalizer, by reason",
	}, []string{"reason"})

	DedupDrops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingester",
		Name:      "dedup_drops_total",
		Help:      "Records dropped by the dedup engine, by layer",
	}, []string{"layer"})

	SyncedEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ingester",
		Name:      "synced_events_total",
		Help:      "Events confirmed upserted into the shared store",
	})

	SyncFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ingester",
		Name:      "sync_failures_total",
		Help:      "Events that failed to upsert after retry",
	})

	RunDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "ingester",
		Name:      "run_duration_seconds",
		Help:      "Wall time of one pipeline invocation",
	})
)

func init() {
	prometheus.MustRegister(
		FetchTotal, FetchFallbacks, RecordsScraped,
		ValidationDrops, DedupDrops,
		SyncedEvents, SyncFailures, RunDuration,
	)
}

// Serve starts the /metrics endpoint on addr in a goroutine. Empty
// addr disables it.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
}

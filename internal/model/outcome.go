package model

import "time"

// FetchStatus is the terminal classification of one (source, locality)
// fetch task.
type FetchStatus string

const (
	FetchOK     FetchStatus = "ok"
	FetchFailed FetchStatus = "failed"
)

// FetchOutcome is the per-task result surfaced into the run summary.
// Failures never propagate past the fetcher boundary; they land here.
type FetchOutcome struct {
	Source   Source        `json:"source"`
	Locality string        `json:"locality"`
	Status   FetchStatus   `json:"status"`
	Method   string        `json:"method,omitempty"`  // strategy that produced the page
	Failure  string        `json:"failure,omitempty"` // timeout | blocked | empty | http | parse
	Records  int           `json:"records"`
	Elapsed  time.Duration `json:"elapsed"`
}

// SyncDecision is what the sync manager chose to do with the batch.
type SyncDecision string

const (
	SyncSynced   SyncDecision = "synced"
	SyncSkipped  SyncDecision = "skipped"
	SyncDisabled SyncDecision = "disabled"
)

// RunSummary is the structured record emitted once per invocation.
type RunSummary struct {
	RunID    string         `json:"run_id"`
	Started  time.Time      `json:"started"`
	Elapsed  time.Duration  `json:"elapsed"`
	Fetched  int            `json:"fetched"`
	Outcomes []FetchOutcome `json:"outcomes"`

	ValidationDropped map[string]int `json:"validation_dropped"` // reason -> count
	DedupDropped      map[string]int `json:"dedup_dropped"`      // layer -> count
	Kept              int            `json:"kept"`

	Decision      SyncDecision `json:"decision"`
	SyncAttempted int          `json:"sync_attempted"`
	SyncSucceeded int          `json:"sync_succeeded"`
	SyncFailed    int          `json:"sync_failed"`
	Buffered      int          `json:"buffered"`
	PrunedHistory int          `json:"pruned_history"`
}

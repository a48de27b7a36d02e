// Package source holds one scraper per supported site. The
// orchestrator only ever talks to the Source interface; everything
// site-specific (listing URLs, embedded-JSON quirks) stays in the
// per-site implementations.
package source

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"event-radar/ingester/internal/fetch"
	"event-radar/ingester/internal/model"
)

type Source interface {
	Name() model.Source
	// Fetch scrapes one locality's listings. Failures never escape:
	// they are classified into the returned outcome.
	Fetch(ctx context.Context, locality string) ([]model.RawRecord, model.FetchOutcome)
}

// Deps is the shared plumbing handed to every scraper.
type Deps struct {
	Chain   *fetch.Chain
	Limiter *rate.Limiter
	BaseURL string // optional override, mainly for tests
}

// New builds the scraper for a source type.
func New(t model.Source, d Deps) (Source, error) {
	switch t {
	case model.SourceEventbrite:
		return newEventbrite(d), nil
	case model.SourceMeetup:
		return newMeetup(d), nil
	case model.SourceLuma:
		return newLuma(d), nil
	case model.SourceDiceFM:
		return newDiceFM(d), nil
	case model.SourceRA:
		return newResidentAdvisor(d), nil
	case model.SourcePoshVip:
		return newPoshVip(d), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", t)
	}
}

// scraper is the common fetch-parse-outcome flow. Parse funcs return
// zero records to signal an empty-but-expected-nonempty page, which
// makes the chain try its next strategy.
type scraper struct {
	chain   *fetch.Chain
	limiter *rate.Limiter
}

func (s *scraper) run(ctx context.Context, src model.Source, locality, url string, parse func(html string) []model.RawRecord) ([]model.RawRecord, model.FetchOutcome) {
	start := time.Now()
	out := model.FetchOutcome{Source: src, Locality: locality}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			out.Status = model.FetchFailed
			out.Failure = fetch.FailTimeout
			out.Elapsed = time.Since(start)
			return nil, out
		}
	}

	var records []model.RawRecord
	_, method, err := s.chain.GetValidated(ctx, url, func(html string) error {
		recs := parse(html)
		if len(recs) == 0 {
			return fmt.Errorf("no event records in page")
		}
		records = recs
		return nil
	})
	out.Elapsed = time.Since(start)
	if err != nil {
		out.Status = model.FetchFailed
		out.Failure = fetch.Classify(err)
		return nil, out
	}
	out.Status = model.FetchOK
	out.Method = method
	out.Records = len(records)
	return records, out
}

func baseOr(override, def string) string {
	if override != "" {
		return override
	}
	return def
}

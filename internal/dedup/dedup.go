// Package dedup collapses a normalized batch against itself and
// against the persisted history. Three layers run in order of cost:
// normalized-URL match, event-hash match, then fuzzy content match
// over whatever survived the first two.
package dedup

import (
	"net/url"
	"strings"

	"event-radar/ingester/internal/config"
	"event-radar/ingester/internal/model"
	"event-radar/ingester/internal/normalize"
)

// Reason names the layer that dropped a record.
type Reason string

const (
	ReasonURL   Reason = "url-duplicate"
	ReasonHash  Reason = "hash-duplicate"
	ReasonFuzzy Reason = "fuzzy-content-duplicate"
)

// Dropped carries the losing record, why it lost, and the link of the
// record it duplicated.
type Dropped struct {
	Event       model.CanonicalEvent
	Reason      Reason
	DuplicateOf string
}

// History is the read side of the persisted dedup state.
type History interface {
	HasHash(hash string) bool
	HasLink(normLink string) bool
}

type Engine struct {
	titleThreshold    float64
	locationThreshold float64
	priority          map[model.Source]int
}

func New(cfg config.DedupConfig) *Engine {
	prio := make(map[model.Source]int, len(cfg.SourcePriority))
	for i, s := range cfg.SourcePriority {
		prio[model.Source(s)] = i
	}
	return &Engine{
		titleThreshold:    cfg.TitleThreshold,
		locationThreshold: cfg.LocationThreshold,
		priority:          prio,
	}
}

// NormalizeURL strips scheme, www., query, fragment and trailing
// slash so the same listing reached via tracking links still matches.
func NormalizeURL(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(link))
	}
	host := strings.ToLower(strings.TrimPrefix(u.Host, "www."))
	path := strings.TrimRight(u.Path, "/")
	return host + path
}

// Completeness scores the optional fields: description is worth 2,
// image, price and a concrete time 1 each. Used only to break ties
// between fuzzy duplicates.
func Completeness(e model.CanonicalEvent) int {
	score := 0
	if e.Description != "" {
		score += 2
	}
	if e.ImageURL != "" {
		score++
	}
	if e.PriceCents > 0 {
		score++
	}
	if e.Time != "" && e.Time != "TBA" {
		score++
	}
	return score
}

// Deduplicate processes batch in arrival order and returns the kept
// records plus every drop with its reason. Output is deterministic
// for a fixed input ordering.
func (e *Engine) Deduplicate(batch []model.CanonicalEvent, hist History) ([]model.CanonicalEvent, []Dropped) {
	kept := make([]model.CanonicalEvent, 0, len(batch))
	var dropped []Dropped
	seenURL := make(map[string]string, len(batch))  // norm url -> link of keeper
	seenHash := make(map[string]string, len(batch)) // hash -> link of keeper

	for _, ev := range batch {
		normLink := NormalizeURL(ev.Link)

		if keeper, ok := seenURL[normLink]; ok {
			dropped = append(dropped, Dropped{Event: ev, Reason: ReasonURL, DuplicateOf: keeper})
			continue
		}
		if hist.HasLink(normLink) {
			dropped = append(dropped, Dropped{Event: ev, Reason: ReasonURL})
			continue
		}
		if keeper, ok := seenHash[ev.EventHash]; ok {
			dropped = append(dropped, Dropped{Event: ev, Reason: ReasonHash, DuplicateOf: keeper})
			continue
		}
		if hist.HasHash(ev.EventHash) {
			dropped = append(dropped, Dropped{Event: ev, Reason: ReasonHash})
			continue
		}

		seenURL[normLink] = ev.Link
		seenHash[ev.EventHash] = ev.Link

		if i, ok := e.fuzzyMatch(kept, ev); ok {
			if e.wins(kept[i], ev) {
				kept[i].AltSources = appendSource(kept[i].AltSources, ev.Source)
				dropped = append(dropped, Dropped{Event: ev, Reason: ReasonFuzzy, DuplicateOf: kept[i].Link})
			} else {
				loser := kept[i]
				ev.AltSources = appendSource(append(ev.AltSources, loser.AltSources...), loser.Source)
				kept[i] = ev
				dropped = append(dropped, Dropped{Event: loser, Reason: ReasonFuzzy, DuplicateOf: ev.Link})
			}
			continue
		}
		kept = append(kept, ev)
	}
	return kept, dropped
}

// fuzzyMatch finds the first kept record that looks like the same
// event: identical calendar date, location similarity at or above the
// location threshold and title similarity at or above the title one.
func (e *Engine) fuzzyMatch(kept []model.CanonicalEvent, ev model.CanonicalEvent) (int, bool) {
	evTitle := normalize.NormalizeText(ev.Title)
	evLoc := normalize.NormalizeText(ev.Location)
	for i, k := range kept {
		if k.Date != ev.Date {
			continue
		}
		if Similarity(normalize.NormalizeText(k.Location), evLoc) < e.locationThreshold {
			continue
		}
		if Similarity(normalize.NormalizeText(k.Title), evTitle) < e.titleThreshold {
			continue
		}
		return i, true
	}
	return 0, false
}

// wins reports whether the incumbent beats the challenger:
// completeness first, then source priority, then lexicographic link
// as the stable final tie-break.
func (e *Engine) wins(incumbent, challenger model.CanonicalEvent) bool {
	ci, cc := Completeness(incumbent), Completeness(challenger)
	if ci != cc {
		return ci > cc
	}
	pi, pc := e.priorityOf(incumbent.Source), e.priorityOf(challenger.Source)
	if pi != pc {
		return pi < pc
	}
	return incumbent.Link <= challenger.Link
}

func (e *Engine) priorityOf(s model.Source) int {
	if p, ok := e.priority[s]; ok {
		return p
	}
	return len(e.priority)
}

func appendSource(list []model.Source, s model.Source) []model.Source {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}

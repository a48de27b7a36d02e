package source

import (
	"context"
	"net/url"
	"strings"

	"event-radar/ingester/internal/model"
)

type meetup struct {
	scraper
	base string
}

func newMeetup(d Deps) *meetup {
	return &meetup{
		scraper: scraper{chain: d.Chain, limiter: d.Limiter},
		base:    baseOr(d.BaseURL, "https://www.meetup.com"),
	}
}

func (m *meetup) Name() model.Source { return model.SourceMeetup }

func (m *meetup) Fetch(ctx context.Context, locality string) ([]model.RawRecord, model.FetchOutcome) {
	listing := m.base + "/find/?location=" + url.QueryEscape(locality) + "&source=EVENTS"
	return m.run(ctx, m.Name(), locality, listing, func(html string) []model.RawRecord {
		items := extractLDEvents(html)
		// Online-only meetups carry no usable venue; keep in-person ones.
		kept := items[:0]
		for _, it := range items {
			if mode, _ := it["eventAttendanceMode"].(string); strings.Contains(mode, "Online") {
				continue
			}
			kept = append(kept, it)
		}
		return ldToRaw(m.Name(), kept)
	})
}

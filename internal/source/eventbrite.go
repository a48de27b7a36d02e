package source

import (
	"context"
	"net/url"

	"event-radar/ingester/internal/model"
)

type eventbrite struct {
	scraper
	base string
}

func newEventbrite(d Deps) *eventbrite {
	return &eventbrite{
		scraper: scraper{chain: d.Chain, limiter: d.Limiter},
		base:    baseOr(d.BaseURL, "https://www.eventbrite.com"),
	}
}

func (e *eventbrite) Name() model.Source { return model.SourceEventbrite }

func (e *eventbrite) Fetch(ctx context.Context, locality string) ([]model.RawRecord, model.FetchOutcome) {
	listing := e.base + "/d/" + url.PathEscape(locality) + "/all-events/"
	return e.run(ctx, e.Name(), locality, listing, func(html string) []model.RawRecord {
		return ldToRaw(e.Name(), extractLDEvents(html))
	})
}

package source

import (
	"context"
	"net/url"

	"event-radar/ingester/internal/model"
)

type poshVip struct {
	scraper
	base string
}

func newPoshVip(d Deps) *poshVip {
	return &poshVip{
		scraper: scraper{chain: d.Chain, limiter: d.Limiter},
		base:    baseOr(d.BaseURL, "https://posh.vip"),
	}
}

func (p *poshVip) Name() model.Source { return model.SourcePoshVip }

func (p *poshVip) Fetch(ctx context.Context, locality string) ([]model.RawRecord, model.FetchOutcome) {
	listing := p.base + "/explore?location=" + url.QueryEscape(locality)
	return p.run(ctx, p.Name(), locality, listing, func(html string) []model.RawRecord {
		return ldToRaw(p.Name(), extractLDEvents(html))
	})
}

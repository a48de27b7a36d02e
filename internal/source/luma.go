package source

import (
	"context"
	"net/url"

	"event-radar/ingester/internal/model"
)

type luma struct {
	scraper
	base string
}

func newLuma(d Deps) *luma {
	return &luma{
		scraper: scraper{chain: d.Chain, limiter: d.Limiter},
		base:    baseOr(d.BaseURL, "https://lu.ma"),
	}
}

func (l *luma) Name() model.Source { return model.SourceLuma }

func (l *luma) Fetch(ctx context.Context, locality string) ([]model.RawRecord, model.FetchOutcome) {
	// Luma city pages are short slugs (lu.ma/nyc, lu.ma/la).
	listing := l.base + "/" + url.PathEscape(locality)
	return l.run(ctx, l.Name(), locality, listing, func(html string) []model.RawRecord {
		records := ldToRaw(l.Name(), extractLDEvents(html))
		// Luma listings frequently omit offers entirely for free
		// community events; treat missing price as free rather than
		// letting the normalizer guess.
		for i := range records {
			if _, ok := records[i].Fields["price_cents"]; !ok {
				records[i].Fields["price_cents"] = "0"
			}
		}
		return records
	})
}

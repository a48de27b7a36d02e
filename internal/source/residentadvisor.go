package source

import (
	"context"
	"strings"

	"event-radar/ingester/internal/model"
)

type residentAdvisor struct {
	scraper
	base string
}

func newResidentAdvisor(d Deps) *residentAdvisor {
	return &residentAdvisor{
		scraper: scraper{chain: d.Chain, limiter: d.Limiter},
		base:    baseOr(d.BaseURL, "https://ra.co"),
	}
}

func (r *residentAdvisor) Name() model.Source { return model.SourceRA }

func (r *residentAdvisor) Fetch(ctx context.Context, locality string) ([]model.RawRecord, model.FetchOutcome) {
	// RA area slugs already contain the region ("us/losangeles").
	listing := r.base + "/events/" + strings.TrimPrefix(locality, "/")
	return r.run(ctx, r.Name(), locality, listing, func(html string) []model.RawRecord {
		records := ldToRaw(r.Name(), extractLDEvents(html))
		for i := range records {
			// RA prefixes venue names with the promoter ("XYZ presents
			// at Warehouse"); the venue after " at " is the part that
			// matches other sources.
			if loc, ok := records[i].Fields["location"]; ok {
				if _, after, found := strings.Cut(loc, " at "); found && after != "" {
					records[i].Fields["location"] = after
				}
			}
			// Relative event links are common on RA listing pages.
			if link, ok := records[i].Fields["link"]; ok && strings.HasPrefix(link, "/") {
				records[i].Fields["link"] = r.base + link
			}
		}
		return records
	})
}

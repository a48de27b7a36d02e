package source

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"event-radar/ingester/internal/model"
)

type diceFM struct {
	scraper
	base string
}

func newDiceFM(d Deps) *diceFM {
	return &diceFM{
		scraper: scraper{chain: d.Chain, limiter: d.Limiter},
		base:    baseOr(d.BaseURL, "https://dice.fm"),
	}
}

func (d *diceFM) Name() model.Source { return model.SourceDiceFM }

var nextDataRe = regexp.MustCompile(`(?is)<script[^>]*id="__NEXT_DATA__"[^>]*>(.*?)</script>`)

func (d *diceFM) Fetch(ctx context.Context, locality string) ([]model.RawRecord, model.FetchOutcome) {
	listing := d.base + "/browse/" + url.PathEscape(locality)
	return d.run(ctx, d.Name(), locality, listing, func(html string) []model.RawRecord {
		if recs := ldToRaw(d.Name(), extractLDEvents(html)); len(recs) > 0 {
			return recs
		}
		// Dice renders listings from the Next.js bootstrap blob when
		// no ld+json is present.
		return d.parseNextData(html)
	})
}

func (d *diceFM) parseNextData(html string) []model.RawRecord {
	m := nextDataRe.FindStringSubmatch(html)
	if m == nil {
		return nil
	}
	var doc struct {
		Props struct {
			PageProps struct {
				Events []struct {
					Name     string `json:"name"`
					Date     string `json:"date"`
					PermName string `json:"perm_name"`
					URL      string `json:"url"`
					About    string `json:"about"`
					Image    string `json:"image"`
					Venues   []struct {
						Name string `json:"name"`
					} `json:"venues"`
					Price struct {
						Amount int `json:"amount"` // already minor units
					} `json:"price"`
				} `json:"events"`
			} `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &doc); err != nil {
		return nil
	}

	events := doc.Props.PageProps.Events
	records := make([]model.RawRecord, 0, len(events))
	for _, ev := range events {
		f := map[string]string{}
		if ev.Name != "" {
			f["title"] = ev.Name
		}
		if ev.Date != "" {
			date, clock := splitISODateTime(ev.Date)
			f["date"] = date
			if clock != "" {
				f["time"] = clock
			}
		}
		if len(ev.Venues) > 0 && ev.Venues[0].Name != "" {
			f["location"] = ev.Venues[0].Name
		}
		switch {
		case ev.URL != "":
			f["link"] = ev.URL
		case ev.PermName != "":
			f["link"] = d.base + "/event/" + ev.PermName
		}
		if ev.About != "" {
			f["description"] = ev.About
		}
		if ev.Image != "" {
			f["image"] = ev.Image
		}
		f["price_cents"] = strconv.Itoa(ev.Price.Amount)
		records = append(records, model.RawRecord{Source: d.Name(), Fields: f})
	}
	return records
}

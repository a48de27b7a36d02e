package source

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"event-radar/ingester/internal/model"
)

// All six sites embed schema.org Event markup. Pulling the ld+json
// blocks is far more stable than scraping markup that changes with
// every frontend deploy.
var ldScriptRe = regexp.MustCompile(`(?is)<script[^>]*type\s*=\s*["']application/ld\+json["'][^>]*>(.*?)</script>`)

// extractLDEvents returns every schema.org object in html whose @type
// is an Event flavor (Event, MusicEvent, DanceEvent, ...).
func extractLDEvents(html string) []map[string]any {
	var events []map[string]any
	for _, m := range ldScriptRe.FindAllStringSubmatch(html, -1) {
		var doc any
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &doc); err != nil {
			continue
		}
		collectLDEvents(doc, &events)
	}
	return events
}

func collectLDEvents(doc any, out *[]map[string]any) {
	switch v := doc.(type) {
	case []any:
		for _, item := range v {
			collectLDEvents(item, out)
		}
	case map[string]any:
		if g, ok := v["@graph"]; ok {
			collectLDEvents(g, out)
		}
		if t, _ := v["@type"].(string); strings.Contains(t, "Event") {
			*out = append(*out, v)
		}
	}
}

// ldToRaw maps schema.org Event objects to raw records. Missing
// fields stay absent; the normalizer decides what is fatal.
func ldToRaw(src model.Source, items []map[string]any) []model.RawRecord {
	records := make([]model.RawRecord, 0, len(items))
	for _, it := range items {
		f := map[string]string{}
		if v, _ := it["name"].(string); v != "" {
			f["title"] = v
		}
		if v, _ := it["url"].(string); v != "" {
			f["link"] = v
		}
		if v, _ := it["description"].(string); v != "" {
			f["description"] = v
		}
		if start, _ := it["startDate"].(string); start != "" {
			date, clock := splitISODateTime(start)
			f["date"] = date
			if clock != "" {
				f["time"] = clock
			}
		}
		if loc := ldLocation(it["location"]); loc != "" {
			f["location"] = loc
		}
		if img := ldImage(it["image"]); img != "" {
			f["image"] = img
		}
		if cents, ok := ldPriceCents(it["offers"]); ok {
			f["price_cents"] = strconv.Itoa(cents)
		}
		records = append(records, model.RawRecord{Source: src, Fields: f})
	}
	return records
}

// splitISODateTime splits "2026-02-15T21:00:00-08:00" into the date
// part and a HH:MM clock. A bare date yields an empty clock.
func splitISODateTime(s string) (string, string) {
	s = strings.TrimSpace(s)
	date, rest, found := strings.Cut(s, "T")
	if !found {
		return s, ""
	}
	if len(rest) >= 5 {
		return date, rest[:5]
	}
	return date, ""
}

func ldLocation(v any) string {
	switch loc := v.(type) {
	case string:
		return loc
	case map[string]any:
		if name, _ := loc["name"].(string); name != "" {
			return name
		}
		if addr, ok := loc["address"].(map[string]any); ok {
			parts := []string{}
			for _, k := range []string{"streetAddress", "addressLocality"} {
				if s, _ := addr[k].(string); s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", ")
		}
		if addr, _ := loc["address"].(string); addr != "" {
			return addr
		}
	}
	return ""
}

func ldImage(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case []any:
		if len(img) > 0 {
			return ldImage(img[0])
		}
	case map[string]any:
		if u, _ := img["url"].(string); u != "" {
			return u
		}
	}
	return ""
}

// ldPriceCents reads offers.price (or lowPrice for AggregateOffer)
// and converts the major-unit amount to cents.
func ldPriceCents(v any) (int, bool) {
	switch offer := v.(type) {
	case []any:
		if len(offer) > 0 {
			return ldPriceCents(offer[0])
		}
	case map[string]any:
		for _, key := range []string{"lowPrice", "price"} {
			if raw, ok := offer[key]; ok {
				if cents, ok := toCents(raw); ok {
					return cents, true
				}
			}
		}
	}
	return 0, false
}

func toCents(v any) (int, bool) {
	switch p := v.(type) {
	case float64:
		return int(math.Round(p * 100)), true
	case string:
		p = strings.TrimSpace(strings.TrimPrefix(p, "$"))
		if p == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, false
		}
		return int(math.Round(f * 100)), true
	case json.Number:
		f, err := p.Float64()
		if err != nil {
			return 0, false
		}
		return int(math.Round(f * 100)), true
	}
	return 0, false
}

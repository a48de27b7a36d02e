package normalize

import (
	"errors"
	"strings"
	"testing"
	"time"

	"event-radar/ingester/internal/model"
)

func rawRecord(overrides map[string]string) model.RawRecord {
	fields := map[string]string{
		"title":    "Warehouse Rave",
		"date":     "2026-10-03",
		"time":     "22:00",
		"location": "Printworks London",
		"link":     "https://example.com/events/warehouse-rave",
	}
	for k, v := range overrides {
		if v == "" {
			delete(fields, k)
		} else {
			fields[k] = v
		}
	}
	return model.RawRecord{Source: model.SourceDiceFM, Fields: fields}
}

func TestNormalizeValidRecord(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	ev, err := Normalize(rawRecord(nil), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Title != "Warehouse Rave" {
		t.Errorf("title = %q", ev.Title)
	}
	if ev.Date != "2026-10-03" {
		t.Errorf("date = %q", ev.Date)
	}
	if ev.PriceTier != model.TierFree {
		t.Errorf("tier = %q, want FREE for missing price", ev.PriceTier)
	}
	if ev.Category == "" {
		t.Error("category must never be empty")
	}
	if len(ev.EventHash) != 32 {
		t.Errorf("event hash %q is not a 128-bit hex digest", ev.EventHash)
	}
	if !ev.ScrapedAt.Equal(now) {
		t.Errorf("scraped_at = %v", ev.ScrapedAt)
	}
}

func TestNormalizeRejections(t *testing.T) {
	cases := []struct {
		name      string
		overrides map[string]string
		reason    Reason
		field     string
	}{
		{"missing title", map[string]string{"title": ""}, MissingField, "title"},
		{"missing date", map[string]string{"date": ""}, MissingField, "date"},
		{"missing location", map[string]string{"location": ""}, MissingField, "location"},
		{"missing link", map[string]string{"link": ""}, MissingField, "link"},
		{"whitespace-only title", map[string]string{"title": "   \t  "}, MissingField, "title"},
		{"title too short", map[string]string{"title": "DJ"}, BadFormat, "title"},
		{"bad date", map[string]string{"date": "03/10/2026"}, BadFormat, "date"},
		{"relative link", map[string]string{"link": "/events/123"}, BadFormat, "link"},
		{"ftp link", map[string]string{"link": "ftp://example.com/x"}, BadFormat, "link"},
		{"negative price", map[string]string{"price_cents": "-100"}, BadFormat, "price_cents"},
		{"non-numeric price", map[string]string{"price_cents": "twenty"}, BadFormat, "price_cents"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(rawRecord(tc.overrides), time.Now())
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if verr.Reason != tc.reason || verr.Field != tc.field {
				t.Errorf("got (%s, %s), want (%s, %s)", verr.Reason, verr.Field, tc.reason, tc.field)
			}
		})
	}
}

func TestNormalizeTimestampDate(t *testing.T) {
	ev, err := Normalize(rawRecord(map[string]string{"date": "2026-10-03T22:00:00Z"}), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Date != "2026-10-03" {
		t.Errorf("date = %q, want calendar part only", ev.Date)
	}
}

func TestNormalizeTimeDefaultsToTBA(t *testing.T) {
	ev, err := Normalize(rawRecord(map[string]string{"time": ""}), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Time != "TBA" {
		t.Errorf("time = %q, want TBA", ev.Time)
	}
}

func TestPriceTierBoundaries(t *testing.T) {
	cases := []struct {
		cents int
		want  model.PriceTier
	}{
		{0, model.TierFree},
		{1, model.TierUnder20},
		{1999, model.TierUnder20},
		{2000, model.TierUnder50},
		{4999, model.TierUnder50},
		{5000, model.TierUnder100},
		{9999, model.TierUnder100},
		{10000, model.TierPaid},
	}
	for _, tc := range cases {
		if got := PriceTier(tc.cents); got != tc.want {
			t.Errorf("PriceTier(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"collapses whitespace", "a  b\t\tc\n\nd", "a b c d"},
		{"strips zero-width", "Ware\u200bhouse\u200c Rave\ufeff", "Warehouse Rave"},
		{"control chars become spaces", "line1\x00line2", "line1 line2"},
		{"trims ends", "  padded  ", "padded"},
		{"keeps unicode letters", "Fête de la Musique", "Fête de la Musique"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanText(tc.in); got != tc.want {
				t.Errorf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDescriptionTruncation(t *testing.T) {
	long := strings.Repeat("x", MaxDescriptionLen+50)
	ev, err := Normalize(rawRecord(map[string]string{"description": long}), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	runes := []rune(ev.Description)
	if len(runes) != MaxDescriptionLen+1 {
		t.Fatalf("description length = %d runes", len(runes))
	}
	if runes[len(runes)-1] != '…' {
		t.Error("truncated description must end with the ellipsis marker")
	}

	short := strings.Repeat("y", MaxDescriptionLen)
	ev, err = Normalize(rawRecord(map[string]string{"description": short}), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Description != short {
		t.Error("exact-length description must pass through untouched")
	}
}

func TestEventHashStability(t *testing.T) {
	a := EventHash("Warehouse Rave!!", "2026-10-03", "Printworks, London", model.SourceDiceFM)
	b := EventHash("warehouse rave", "2026-10-03", "printworks london", model.SourceDiceFM)
	if a != b {
		t.Errorf("hash must ignore case and punctuation: %s vs %s", a, b)
	}
	c := EventHash("Warehouse Rave", "2026-10-04", "Printworks London", model.SourceDiceFM)
	if a == c {
		t.Error("different dates must hash differently")
	}
	d := EventHash("Warehouse Rave", "2026-10-03", "Printworks London", model.SourceRA)
	if a == d {
		t.Error("different sources must hash differently")
	}
}

func TestNormalizeText(t *testing.T) {
	if got := NormalizeText("  Concert -- at LA Forum!  "); got != "concert at la forum" {
		t.Errorf("NormalizeText = %q", got)
	}
}

func TestCategorize(t *testing.T) {
	cases := []struct {
		title, desc string
		want        model.Category
	}{
		{"Techno All Nighter", "DJ sets until dawn", model.CategoryMusic},
		{"Rooftop Club Night", "", model.CategoryNightlife},
		{"Gallery Opening: New Works", "exhibition of paintings", model.CategoryArts},
		{"Natural Wine Tasting", "", model.CategoryFoodDrink},
		{"Go Meetup: Concurrency Patterns", "hackathon follow-up", model.CategoryTech},
		{"Stand-up Comedy Showcase", "", model.CategoryComedy},
		{"Sunrise Yoga in the Park", "", model.CategoryWellness},
		{"Annual General Meeting", "bylaws review", model.CategoryUntagged},
	}
	for _, tc := range cases {
		if got := Categorize(tc.title, tc.desc); got != tc.want {
			t.Errorf("Categorize(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

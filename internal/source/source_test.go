package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"event-radar/ingester/internal/fetch"
	"event-radar/ingester/internal/model"
)

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func depsFor(srv *httptest.Server) Deps {
	chain := fetch.NewChainFromStrategies(5*time.Second, 20*time.Second,
		fetch.NewDirect(5*time.Second, "test-agent"))
	return Deps{Chain: chain, BaseURL: srv.URL}
}

func ldEvent(name, link, start, venue string) string {
	return fmt.Sprintf(`<script type="application/ld+json">
{"@type": "Event", "name": %q, "url": %q, "startDate": %q,
 "location": {"@type": "Place", "name": %q}}
</script>`, name, link, start, venue)
}

func TestFactory(t *testing.T) {
	for _, s := range model.AllSources {
		src, err := New(s, Deps{})
		if err != nil {
			t.Fatalf("New(%s): %v", s, err)
		}
		if src.Name() != s {
			t.Errorf("New(%s).Name() = %s", s, src.Name())
		}
	}
	if _, err := New("craigslist", Deps{}); err == nil {
		t.Error("unknown source type must fail")
	}
}

func TestEventbriteFetch(t *testing.T) {
	srv := serveHTML(t, "<html>"+ldEvent("Warehouse Rave", "https://example.com/e/1", "2026-10-03T22:00:00Z", "Printworks")+"</html>")
	src, _ := New(model.SourceEventbrite, depsFor(srv))

	records, out := src.Fetch(context.Background(), "los-angeles")
	if out.Status != model.FetchOK {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Method != "direct" || out.Records != 1 {
		t.Errorf("method %q records %d", out.Method, out.Records)
	}
	if len(records) != 1 || records[0].Get("title") != "Warehouse Rave" {
		t.Errorf("records = %+v", records)
	}
}

func TestMeetupFiltersOnlineEvents(t *testing.T) {
	page := `<html><script type="application/ld+json">
[
  {"@type": "Event", "name": "In Person Meetup", "url": "https://example.com/e/1",
   "startDate": "2026-10-03T18:00:00Z", "location": {"name": "Cafe"},
   "eventAttendanceMode": "https://schema.org/OfflineEventAttendanceMode"},
  {"@type": "Event", "name": "Webinar", "url": "https://example.com/e/2",
   "startDate": "2026-10-03T18:00:00Z", "location": {"name": "Zoom"},
   "eventAttendanceMode": "https://schema.org/OnlineEventAttendanceMode"}
]
</script></html>`
	srv := serveHTML(t, page)
	src, _ := New(model.SourceMeetup, depsFor(srv))

	records, out := src.Fetch(context.Background(), "portland")
	if out.Status != model.FetchOK {
		t.Fatalf("outcome = %+v", out)
	}
	if len(records) != 1 || records[0].Get("title") != "In Person Meetup" {
		t.Errorf("records = %+v, online event must be filtered", records)
	}
}

func TestLumaDefaultsMissingPriceToFree(t *testing.T) {
	srv := serveHTML(t, "<html>"+ldEvent("Community Dinner", "https://example.com/e/1", "2026-10-03", "Park")+"</html>")
	src, _ := New(model.SourceLuma, depsFor(srv))

	records, out := src.Fetch(context.Background(), "nyc")
	if out.Status != model.FetchOK {
		t.Fatalf("outcome = %+v", out)
	}
	if records[0].Get("price_cents") != "0" {
		t.Errorf("price_cents = %q, want free default", records[0].Get("price_cents"))
	}
}

func TestDiceFMNextDataFallback(t *testing.T) {
	page := `<html><script id="__NEXT_DATA__" type="application/json">
{"props": {"pageProps": {"events": [
  {"name": "Club Night", "date": "2026-10-03T23:00:00Z", "perm_name": "club-night",
   "about": "late one", "venues": [{"name": "The Basement"}], "price": {"amount": 1500}}
]}}}
</script></html>`
	srv := serveHTML(t, page)
	src, _ := New(model.SourceDiceFM, depsFor(srv))

	records, out := src.Fetch(context.Background(), "london")
	if out.Status != model.FetchOK {
		t.Fatalf("outcome = %+v", out)
	}
	if len(records) != 1 {
		t.Fatalf("records = %+v", records)
	}
	r := records[0]
	if r.Get("title") != "Club Night" || r.Get("location") != "The Basement" {
		t.Errorf("record = %+v", r.Fields)
	}
	if r.Get("link") != srv.URL+"/event/club-night" {
		t.Errorf("link = %q, want perm_name URL", r.Get("link"))
	}
	if r.Get("price_cents") != "1500" {
		t.Errorf("price_cents = %q, dice amounts are already minor units", r.Get("price_cents"))
	}
}

func TestResidentAdvisorCleansVenueAndLinks(t *testing.T) {
	page := `<html><script type="application/ld+json">
{"@type": "Event", "name": "All Night Long", "url": "/events/2026-all-night",
 "startDate": "2026-10-03T23:00:00Z",
 "location": {"name": "Metropolis presents at Warehouse Project"}}
</script></html>`
	srv := serveHTML(t, page)
	src, _ := New(model.SourceRA, depsFor(srv))

	records, out := src.Fetch(context.Background(), "uk/manchester")
	if out.Status != model.FetchOK {
		t.Fatalf("outcome = %+v", out)
	}
	r := records[0]
	if r.Get("location") != "Warehouse Project" {
		t.Errorf("location = %q, promoter prefix must be stripped", r.Get("location"))
	}
	if r.Get("link") != srv.URL+"/events/2026-all-night" {
		t.Errorf("link = %q, relative links must be absolutized", r.Get("link"))
	}
}

func TestPoshVipFetch(t *testing.T) {
	srv := serveHTML(t, "<html>"+ldEvent("Rooftop Party", "https://example.com/e/9", "2026-10-04T21:00:00Z", "Sky Bar")+"</html>")
	src, _ := New(model.SourcePoshVip, depsFor(srv))

	records, out := src.Fetch(context.Background(), "miami")
	if out.Status != model.FetchOK || len(records) != 1 {
		t.Fatalf("outcome = %+v records = %d", out, len(records))
	}
}

func TestEmptyPageIsAFetchFailure(t *testing.T) {
	srv := serveHTML(t, "<html><body>no structured data here</body></html>")
	src, _ := New(model.SourceEventbrite, depsFor(srv))

	records, out := src.Fetch(context.Background(), "los-angeles")
	if out.Status != model.FetchFailed {
		t.Fatalf("outcome = %+v, page without listings must fail the task", out)
	}
	if out.Failure != fetch.FailEmpty {
		t.Errorf("failure = %q", out.Failure)
	}
	if records != nil {
		t.Error("no records on failure")
	}
}

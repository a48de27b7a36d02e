// Package normalize turns raw scraped records into canonical events:
// required-field checks, format validation, text sanitization, derived
// tags, and the dedup hash.
package normalize

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"event-radar/ingester/internal/model"
)

const (
	MinTitleLen       = 3
	MaxDescriptionLen = 1000
	truncationMarker  = "…"
)

// Reason names the validation failure for drop accounting.
type Reason string

const (
	MissingField Reason = "missing_field"
	BadFormat    Reason = "bad_format"
)

// ValidationError is record-scoped: the record is dropped with a
// structured reason and the batch continues.
type ValidationError struct {
	Reason Reason
	Field  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s (%s)", e.Field, e.Reason)
}

// Normalize converts one raw record into a canonical event or a
// ValidationError.
func Normalize(r model.RawRecord, now time.Time) (model.CanonicalEvent, error) {
	title := CleanText(r.Get("title"))
	location := CleanText(r.Get("location"))
	link := strings.TrimSpace(r.Get("link"))
	rawDate := strings.TrimSpace(r.Get("date"))

	for _, req := range []struct {
		field, val string
	}{
		{"title", title},
		{"date", rawDate},
		{"location", location},
		{"link", link},
		{"source", string(r.Source)},
	} {
		if req.val == "" {
			return model.CanonicalEvent{}, &ValidationError{Reason: MissingField, Field: req.field}
		}
	}
	if !r.Source.Known() {
		return model.CanonicalEvent{}, &ValidationError{Reason: BadFormat, Field: "source"}
	}
	if utf8.RuneCountInString(title) < MinTitleLen {
		return model.CanonicalEvent{}, &ValidationError{Reason: BadFormat, Field: "title"}
	}

	date, err := parseISODate(rawDate)
	if err != nil {
		return model.CanonicalEvent{}, &ValidationError{Reason: BadFormat, Field: "date"}
	}
	if u, err := url.Parse(link); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.CanonicalEvent{}, &ValidationError{Reason: BadFormat, Field: "link"}
	}

	clock := CleanText(r.Get("time"))
	if clock == "" {
		clock = "TBA"
	}

	cents := 0
	if raw := strings.TrimSpace(r.Get("price_cents")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return model.CanonicalEvent{}, &ValidationError{Reason: BadFormat, Field: "price_cents"}
		}
		cents = n
	}

	desc := Truncate(CleanText(r.Get("description")), MaxDescriptionLen)

	ev := model.CanonicalEvent{
		Title:       title,
		Date:        date,
		Time:        clock,
		Location:    location,
		Link:        link,
		Description: desc,
		ImageURL:    strings.TrimSpace(r.Get("image")),
		Source:      r.Source,
		PriceCents:  cents,
		PriceTier:   PriceTier(cents),
		Category:    Categorize(title, desc),
		ScrapedAt:   now,
	}
	ev.EventHash = EventHash(ev.Title, ev.Date, ev.Location, ev.Source)
	return ev, nil
}

// parseISODate accepts a bare calendar date or a full timestamp and
// returns the YYYY-MM-DD part.
func parseISODate(s string) (string, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02"), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02"), nil
	}
	return "", fmt.Errorf("not an ISO date: %q", s)
}

// CleanText strips zero-width and control characters and collapses
// runs of whitespace to single spaces.
func CleanText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\u200b' || r == '\u200c' || r == '\u200d' || r == '\u2060' || r == '\ufeff':
			// zero-width
		case unicode.IsControl(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Truncate cuts s to max runes, appending the ellipsis marker when it
// actually truncated.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + truncationMarker
}

// PriceTier buckets a price in cents. Bounds are inclusive-lower,
// exclusive-upper.
func PriceTier(cents int) model.PriceTier {
	switch {
	case cents == 0:
		return model.TierFree
	case cents < 2000:
		return model.TierUnder20
	case cents < 5000:
		return model.TierUnder50
	case cents < 10000:
		return model.TierUnder100
	default:
		return model.TierPaid
	}
}

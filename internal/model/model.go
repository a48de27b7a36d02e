package model

import "time"

// Source identifies the site a record was scraped from.
type Source string

const (
	SourceEventbrite Source = "eventbrite"
	SourceMeetup     Source = "meetup"
	SourceLuma       Source = "luma"
	SourceDiceFM     Source = "dice_fm"
	SourceRA         Source = "ra_co"
	SourcePoshVip    Source = "posh_vip"
)

// AllSources lists every known source in default dedup priority order.
var AllSources = []Source{
	SourceEventbrite,
	SourceLuma,
	SourceMeetup,
	SourceDiceFM,
	SourceRA,
	SourcePoshVip,
}

// Known reports whether s is one of the supported sources.
func (s Source) Known() bool {
	for _, k := range AllSources {
		if s == k {
			return true
		}
	}
	return false
}

// RawRecord is untyped key/value data for one listing exactly as
// scraped. It only lives until normalization.
type RawRecord struct {
	Source Source
	Fields map[string]string
}

func (r RawRecord) Get(key string) string { return r.Fields[key] }

type PriceTier string

const (
	TierFree     PriceTier = "FREE"
	TierUnder20  PriceTier = "UNDER_20"
	TierUnder50  PriceTier = "UNDER_50"
	TierUnder100 PriceTier = "UNDER_100"
	TierPaid     PriceTier = "PAID"
)

type Category string

const (
	CategoryMusic     Category = "MUSIC"
	CategoryNightlife Category = "NIGHTLIFE"
	CategoryArts      Category = "ARTS"
	CategoryFoodDrink Category = "FOOD_DRINK"
	CategoryTech      Category = "TECH"
	CategoryComedy    Category = "COMEDY"
	CategoryWellness  Category = "WELLNESS"
	CategoryUntagged  Category = "UNTAGGED"
)

// CanonicalEvent is the normalized representation shared by every
// stage after the normalizer. Date is an ISO calendar date
// (YYYY-MM-DD); EventHash is the 128-bit hex digest used as the
// dedup key and the store's upsert key.
type CanonicalEvent struct {
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	Link        string    `json:"link"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Source      Source    `json:"source"`
	PriceCents  int       `json:"price_cents"`
	PriceTier   PriceTier `json:"price_tier"`
	Category    Category  `json:"category"`
	EventHash   string    `json:"event_hash"`
	ScrapedAt   time.Time `json:"scraped_at"`

	// AltSources records sources whose duplicate listing was dropped
	// in favor of this record. Provenance only, never merged data.
	AltSources []Source `json:"alt_sources,omitempty"`
}

// HistoryEntry is one remembered (hash, link) sighting, persisted
// across runs so the same event scraped on different days is not
// re-inserted.
type HistoryEntry struct {
	EventHash string    `json:"event_hash"`
	Link      string    `json:"link"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

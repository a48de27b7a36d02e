package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"event-radar/ingester/internal/config"
	"event-radar/ingester/internal/model"
)

// UpsertResult reports one UpsertBatch call. A batch either commits
// whole or not at all, so on error every record in it counts failed.
type UpsertResult struct {
	Succeeded int
	Failed    int
	Errors    []error
}

// EventStore is the shared store consumed by the web app and digest.
// The pipeline only ever writes; it never reads it back.
type EventStore interface {
	UpsertBatch(ctx context.Context, events []model.CanonicalEvent) (UpsertResult, error)
	Close()
}

type PGStore struct {
	pool  *pgxpool.Pool
	table string
}

func NewPGStore(ctx context.Context, cfg config.StoreConfig) (*PGStore, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store dsn: %w", err)
	}
	pc.MaxConns = int32(cfg.MaxConns)
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("store connect: %w", err)
	}
	return &PGStore{pool: pool, table: fmt.Sprintf("%q.events", cfg.Schema)}, nil
}

func (s *PGStore) Close() { s.pool.Close() }

// EnsureSchema creates the events table when it is missing. The web
// app owns migrations in production; this keeps dev and CI runnable.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			event_hash   TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			date         DATE NOT NULL,
			time_text    TEXT NOT NULL,
			location     TEXT NOT NULL,
			link         TEXT NOT NULL UNIQUE,
			description  TEXT,
			image_url    TEXT,
			source       TEXT NOT NULL,
			alt_sources  TEXT[],
			price_cents  INTEGER NOT NULL DEFAULT 0,
			price_tier   TEXT NOT NULL,
			category     TEXT NOT NULL,
			scraped_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table))
	return err
}

// UpsertBatch inserts or refreshes every event keyed by event_hash.
// Re-running the pipeline over the same input is a no-op apart from
// updated_at, which is what makes delivery at-least-once safe.
func (s *PGStore) UpsertBatch(ctx context.Context, events []model.CanonicalEvent) (UpsertResult, error) {
	var res UpsertResult
	if len(events) == 0 {
		return res, nil
	}

	b := &pgx.Batch{}
	for _, ev := range events {
		alt := make([]string, 0, len(ev.AltSources))
		for _, a := range ev.AltSources {
			alt = append(alt, string(a))
		}
		b.Queue(fmt.Sprintf(`
			INSERT INTO %s
			(event_hash, title, date, time_text, location, link, description, image_url,
			 source, alt_sources, price_cents, price_tier, category, scraped_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now())
			ON CONFLICT (event_hash) DO UPDATE SET
				title = EXCLUDED.title,
				time_text = EXCLUDED.time_text,
				description = EXCLUDED.description,
				image_url = EXCLUDED.image_url,
				alt_sources = EXCLUDED.alt_sources,
				price_cents = EXCLUDED.price_cents,
				price_tier = EXCLUDED.price_tier,
				category = EXCLUDED.category,
				scraped_at = EXCLUDED.scraped_at,
				updated_at = now()`, s.table),
			ev.EventHash, ev.Title, ev.Date, ev.Time, ev.Location, ev.Link,
			nullable(ev.Description), nullable(ev.ImageURL),
			string(ev.Source), alt, ev.PriceCents, string(ev.PriceTier), string(ev.Category), ev.ScrapedAt,
		)
	}

	br := s.pool.SendBatch(ctx, b)
	defer br.Close()
	for i := range events {
		if _, err := br.Exec(); err != nil {
			// The batch pipeline runs in one implicit transaction: a
			// failing statement rolls back everything before it, so
			// no statement in this batch committed.
			werr := fmt.Errorf("upsert %s: %w", events[i].EventHash, err)
			res.Succeeded = 0
			res.Failed = len(events)
			res.Errors = append(res.Errors, werr)
			return res, werr
		}
	}
	res.Succeeded = len(events)
	return res, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

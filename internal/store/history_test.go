package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"event-radar/ingester/internal/model"
)

func TestHistoryObserve(t *testing.T) {
	h := NewHistory()
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	h.Observe("hash1", "https://www.example.com/e/1", now)
	if !h.HasHash("hash1") {
		t.Error("observed hash must be present")
	}
	if !h.HasLink("example.com/e/1") {
		t.Error("link index must hold the normalized form")
	}

	later := now.Add(24 * time.Hour)
	h.Observe("hash1", "https://www.example.com/e/1", later)
	if h.Len() != 1 {
		t.Errorf("repeat sighting grew history to %d", h.Len())
	}
}

func TestHistoryPrune(t *testing.T) {
	h := NewHistory()
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	h.Observe("stale", "https://example.com/e/stale", now.Add(-31*24*time.Hour))
	h.Observe("fresh", "https://example.com/e/fresh", now.Add(-29*24*time.Hour))

	pruned := h.Prune(30*24*time.Hour, now)
	if pruned != 1 {
		t.Fatalf("pruned = %d", pruned)
	}
	if h.HasHash("stale") || h.HasLink("example.com/e/stale") {
		t.Error("pruned entry must leave both indexes")
	}
	if !h.HasHash("fresh") {
		t.Error("entry inside retention must survive")
	}
}

func TestFileHistoryStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.json")
	s := &FileHistoryStore{Path: path}

	h, err := s.Load()
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if h.Len() != 0 || h.RunCounter() != 0 {
		t.Fatal("missing file must load as an empty first-run state")
	}

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	h.Observe("hash1", "https://example.com/e/1", now)
	h.Observe("hash2", "https://example.com/e/2", now)
	h.IncrCounter()
	h.IncrCounter()

	if err := s.Save(h); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.RunCounter() != 2 {
		t.Errorf("counter = %d", got.RunCounter())
	}
	if got.Len() != 2 || !got.HasHash("hash1") || !got.HasLink("example.com/e/2") {
		t.Error("entries and link index must survive the round trip")
	}
}

func TestFileHistoryStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (&FileHistoryStore{Path: path}).Load(); err == nil {
		t.Error("corrupt state file must surface an error, not silently reset")
	}
}

func TestFileBufferRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	b := &FileBuffer{Path: path}

	events, err := b.Load()
	if err != nil || events != nil {
		t.Fatalf("missing buffer must load empty, got %v, %v", events, err)
	}

	in := []model.CanonicalEvent{
		{Title: "Event A", Date: "2026-10-03", Link: "https://example.com/e/a", Source: model.SourceLuma, EventHash: "ha"},
		{Title: "Event B", Date: "2026-10-04", Link: "https://example.com/e/b", Source: model.SourceRA, EventHash: "hb"},
	}
	if err := b.Save(in); err != nil {
		t.Fatal(err)
	}
	out, err := b.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].EventHash != "ha" || out[1].Source != model.SourceRA {
		t.Errorf("round trip mangled the buffer: %+v", out)
	}

	if err := b.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("clear must remove the file")
	}
	if err := b.Clear(); err != nil {
		t.Error("clearing an already-empty buffer must be a no-op")
	}
}

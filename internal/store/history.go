// Package store holds the pipeline's persistent state: the dedup
// history with its run counter, the pending-batch buffer, and the
// shared Postgres event store.
package store

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"event-radar/ingester/internal/dedup"
	"event-radar/ingester/internal/model"
)

// History is the in-memory working copy of the dedup history plus the
// run counter. It is loaded once at run start, mutated in memory and
// persisted once at run end under a single-writer assumption.
type History struct {
	counter int
	entries map[string]model.HistoryEntry // by event hash
	links   map[string]string             // normalized link -> event hash
}

func NewHistory() *History {
	return &History{
		entries: make(map[string]model.HistoryEntry),
		links:   make(map[string]string),
	}
}

func (h *History) HasHash(hash string) bool {
	_, ok := h.entries[hash]
	return ok
}

func (h *History) HasLink(normLink string) bool {
	_, ok := h.links[normLink]
	return ok
}

// Observe records a sighting: new hashes get an entry, repeats bump
// last_seen. Only call for records confirmed synced, otherwise a
// store outage would silently drop them from future retries.
func (h *History) Observe(hash, link string, now time.Time) {
	if e, ok := h.entries[hash]; ok {
		e.LastSeen = now
		h.entries[hash] = e
		return
	}
	h.entries[hash] = model.HistoryEntry{
		EventHash: hash,
		Link:      link,
		FirstSeen: now,
		LastSeen:  now,
	}
	h.links[dedup.NormalizeURL(link)] = hash
}

// Prune drops entries whose last sighting is older than retention and
// returns how many went.
func (h *History) Prune(retention time.Duration, now time.Time) int {
	cutoff := now.Add(-retention)
	pruned := 0
	for hash, e := range h.entries {
		if e.LastSeen.Before(cutoff) {
			delete(h.entries, hash)
			delete(h.links, dedup.NormalizeURL(e.Link))
			pruned++
		}
	}
	return pruned
}

func (h *History) Len() int         { return len(h.entries) }
func (h *History) RunCounter() int  { return h.counter }
func (h *History) IncrCounter() int { h.counter++; return h.counter }

// HistoryStore brackets a run: Load at start, Save at end.
type HistoryStore interface {
	Load() (*History, error)
	Save(h *History) error
}

type historyFile struct {
	RunCounter int                  `json:"run_counter"`
	Entries    []model.HistoryEntry `json:"entries"`
}

// FileHistoryStore keeps the history in a JSON state file. A missing
// file is a first run, not an error.
type FileHistoryStore struct {
	Path string
}

func (s *FileHistoryStore) Load() (*History, error) {
	h := NewHistory()
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return h, nil
		}
		return nil, err
	}
	var f historyFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	h.counter = f.RunCounter
	for _, e := range f.Entries {
		h.entries[e.EventHash] = e
		h.links[dedup.NormalizeURL(e.Link)] = e.EventHash
	}
	return h, nil
}

func (s *FileHistoryStore) Save(h *History) error {
	f := historyFile{RunCounter: h.counter, Entries: make([]model.HistoryEntry, 0, len(h.entries))}
	for _, e := range h.entries {
		f.Entries = append(f.Entries, e)
	}
	b, err := json.MarshalIndent(f, "", " ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.Path, b)
}

// writeFileAtomic goes through a temp file and rename so a crash
// mid-save never leaves a truncated state file.
func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

package store

import (
	"os"

	"github.com/goccy/go-json"

	"event-radar/ingester/internal/model"
)

// Buffer persists batches that a SKIPPED run accumulated, so batching
// across runs survives a process restart.
type Buffer interface {
	Load() ([]model.CanonicalEvent, error)
	Save(events []model.CanonicalEvent) error
	Clear() error
}

type FileBuffer struct {
	Path string
}

func (b *FileBuffer) Load() ([]model.CanonicalEvent, error) {
	raw, err := os.ReadFile(b.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var events []model.CanonicalEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (b *FileBuffer) Save(events []model.CanonicalEvent) error {
	raw, err := json.MarshalIndent(events, "", " ")
	if err != nil {
		return err
	}
	return writeFileAtomic(b.Path, raw)
}

func (b *FileBuffer) Clear() error {
	err := os.Remove(b.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

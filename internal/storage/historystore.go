package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// HistoryStore persists the per-platform build history document.
type HistoryStore interface {
	Load() (models.History, error)
	Save(history models.History) error
	Path() string
}

type fileHistoryStore struct {
	path string
}

// NewHistoryStore creates a HistoryStore backed by the JSON file at path.
func NewHistoryStore(path string) HistoryStore {
	return &fileHistoryStore{path: path}
}

func (s *fileHistoryStore) Path() string {
	return s.path
}

// Load reads the history. A missing file yields an empty history; a file
// that cannot be parsed is an error, since saving over it would lose data.
func (s *fileHistoryStore) Load() (models.History, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.History{}, nil
		}
		return nil, fmt.Errorf("loading history: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return models.History{}, nil
	}

	var history models.History
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("loading history: parsing JSON: %w", err)
	}
	if history == nil {
		history = models.History{}
	}
	for platform, bucket := range history {
		history[platform] = normalizeBucket(bucket)
	}
	return history, nil
}

// Save writes the whole history in one atomic replace while holding an
// exclusive lock next to the file.
func (s *fileHistoryStore) Save(history models.History) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("saving history: creating directory: %w", err)
	}

	out := make(models.History, len(history))
	for platform, bucket := range history {
		out[platform] = normalizeBucket(bucket)
	}
	data, err := marshalIndent(out)
	if err != nil {
		return fmt.Errorf("saving history: marshaling JSON: %w", err)
	}

	unlock, err := lockFile(s.path + ".lock")
	if err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	defer func() { _ = unlock() }()

	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// normalizeBucket replaces missing lists with empty ones so the document
// always carries every field.
func normalizeBucket(b *models.HistoryBucket) *models.HistoryBucket {
	out := models.NewHistoryBucket()
	if b == nil {
		return out
	}
	if b.Notes != nil {
		out.Notes = b.Notes
	}
	if b.BundleObservations != nil {
		out.BundleObservations = b.BundleObservations
	}
	if b.ReleaseObservations != nil {
		out.ReleaseObservations = b.ReleaseObservations
	}
	if b.SourceLinks != nil {
		out.SourceLinks = b.SourceLinks
	}
	return out
}

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

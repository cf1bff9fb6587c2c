package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// SnapshotStore persists the version snapshot a plan run compares against.
type SnapshotStore interface {
	Load() (models.Node, error)
	Save(snapshot models.Node) error
}

type fileSnapshotStore struct {
	path string
}

// NewSnapshotStore creates a SnapshotStore backed by the JSON file at path.
func NewSnapshotStore(path string) SnapshotStore {
	return &fileSnapshotStore{path: path}
}

// Load reads the snapshot. A missing or empty file yields an empty snapshot,
// so the first run reports every version as new.
func (s *fileSnapshotStore) Load() (models.Node, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Node{}, nil
		}
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Node{}, nil
	}
	return DecodeSnapshot(data)
}

func (s *fileSnapshotStore) Save(snapshot models.Node) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("saving snapshot: creating directory: %w", err)
	}
	data, err := marshalIndent(snapshot)
	if err != nil {
		return fmt.Errorf("saving snapshot: marshaling JSON: %w", err)
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot parses a JSON version tree.
func DecodeSnapshot(data []byte) (models.Node, error) {
	var n models.Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if n == nil {
		n = models.Node{}
	}
	return n, nil
}

// LoadSnapshotFile reads a snapshot from an arbitrary path.
func LoadSnapshotFile(path string) (models.Node, error) {
	return NewSnapshotStore(path).Load()
}

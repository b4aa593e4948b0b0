package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/devricklin/weekcheck/internal/biz/repo"
)

// jsonStore keeps one <name>.json file per snapshot in a directory
type jsonStore struct {
	dir string
}

// NewJSONStore creates a file-backed snapshot store
func NewJSONStore(dir string) (repo.SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &jsonStore{dir: dir}, nil
}

func (s *jsonStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load reads and decodes a snapshot file
func (s *jsonStore) Load(ctx context.Context, name string, v any) (bool, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to decode snapshot %s: %w", name, err)
	}
	return true, nil
}

// Save writes the snapshot to a temp file and renames it over the old one
func (s *jsonStore) Save(ctx context.Context, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("failed to replace snapshot %s: %w", name, err)
	}
	return nil
}

// Close is a no-op
func (s *jsonStore) Close() error {
	return nil
}

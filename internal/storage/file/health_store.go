package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"chatwatch/internal/domain"
	"chatwatch/internal/storage"
)

// HealthStore persists the health snapshot as a JSON file. Writes go through
// a temp file and rename so readers never observe a partially written
// snapshot.
type HealthStore struct {
	path string
}

var _ storage.HealthStore = (*HealthStore)(nil)

// NewHealthStore creates a HealthStore writing to path. The parent directory
// must exist and be writable.
func NewHealthStore(path string) *HealthStore {
	return &HealthStore{path: path}
}

// Write replaces the snapshot file atomically.
func (s *HealthStore) Write(_ context.Context, snap *domain.HealthSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp snapshot file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename snapshot file: %w", err)
	}
	return nil
}

// Read retrieves the last written snapshot. Returns ErrNotFound if the file
// does not exist yet.
func (s *HealthStore) Read(_ context.Context) (*domain.HealthSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	var snap domain.HealthSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal health snapshot: %w", err)
	}
	return &snap, nil
}

package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

type fileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore persists the overlay as one flat JSON document on disk,
// written atomically via rename.
func NewFileStore(path string) (Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty file path", ErrInvalidConfig)
	}
	return &fileStore{path: path}, nil
}

func (s *fileStore) Load(_ context.Context) (Overlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Overlay{}, ErrNotFound
	}
	if err != nil {
		return Overlay{}, fmt.Errorf("settings: read %s: %w", s.path, err)
	}
	var doc Overlay
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Overlay{}, fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	if err := doc.Validate(); err != nil {
		return Overlay{}, err
	}
	return doc, nil
}

func (s *fileStore) Save(_ context.Context, o Overlay) error {
	if err := o.Validate(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode overlay: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("settings: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("settings: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("settings: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("settings: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("settings: rename to %s: %w", s.path, err)
	}
	return nil
}

func (s *fileStore) Close() error { return nil }

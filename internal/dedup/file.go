package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps the processed-urls set in a single JSON file under the
// project state directory. Safe for concurrent use within one process; the
// file is rewritten atomically on every Put.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	records map[string]time.Time
	loaded  bool
}

// NewFileStore creates a file-backed store rooted at the state directory.
func NewFileStore(stateDir string) *FileStore {
	return &FileStore{
		path: filepath.Join(stateDir, Namespace+".json"),
	}
}

// Has implements Store.
func (s *FileStore) Has(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return false, err
	}
	_, ok := s.records[id]
	return ok, nil
}

// Put implements Store.
func (s *FileStore) Put(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return fmt.Errorf("dedup: identifier is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	if _, exists := s.records[id]; exists {
		return nil
	}
	s.records[id] = at.UTC()
	return s.flush()
}

// Len returns the number of recorded identifiers.
func (s *FileStore) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return 0, err
	}
	return len(s.records), nil
}

func (s *FileStore) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	s.records = map[string]time.Time{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("dedup: read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return fmt.Errorf("dedup: parse %s: %w", s.path, err)
	}
	s.loaded = true
	return nil
}

func (s *FileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("dedup: ensure state dir: %w", err)
	}
	encoded, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("dedup: encode records: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("dedup: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("dedup: replace %s: %w", s.path, err)
	}
	return nil
}

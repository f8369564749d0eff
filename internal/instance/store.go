package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when no persisted instance exists for an ID.
var ErrNotFound = errors.New("instance: not found")

// ErrNotSuspended is returned when a resume claim targets an instance that is
// not awaiting review. A second claim on the same instance gets this too.
var ErrNotSuspended = errors.New("instance: not suspended")

// Store persists instance snapshots.
type Store interface {
	Load(id string) (Instance, error)
	Save(in Instance) error
	List() ([]Instance, error)
	// ClaimResume atomically moves a suspended instance to resuming so only
	// one caller may deliver a decision.
	ClaimResume(id string, now time.Time) (Instance, error)
}

// FileStore keeps one JSON file per instance under the instances directory.
type FileStore struct {
	dir string

	mu sync.Mutex
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Load reads one instance snapshot.
func (s *FileStore) Load(id string) (Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

func (s *FileStore) load(id string) (Instance, error) {
	if strings.TrimSpace(id) == "" {
		return Instance{}, ErrNotFound
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Instance{}, ErrNotFound
		}
		return Instance{}, fmt.Errorf("instance: read %s: %w", id, err)
	}
	var in Instance
	if err := json.Unmarshal(data, &in); err != nil {
		return Instance{}, fmt.Errorf("instance: parse %s: %w", id, err)
	}
	return in, nil
}

// Save writes the snapshot with temp-file-plus-rename atomicity.
func (s *FileStore) Save(in Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(in)
}

func (s *FileStore) save(in Instance) error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("instance: save requires an id")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path(in.ID) + ".tmp"
	if err := os.WriteFile(tmp, append(encoded, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(in.ID))
}

// List returns every stored instance, newest first.
func (s *FileStore) List() ([]Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("instance: list: %w", err)
	}

	var instances []Instance
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		in, err := s.load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		instances = append(instances, in)
	}
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].CreatedAt.After(instances[j].CreatedAt)
	})
	return instances, nil
}

// ClaimResume transitions suspended -> resuming under the store lock and
// persists the claim before returning, so a competing caller loads the
// already-claimed snapshot and gets ErrNotSuspended.
func (s *FileStore) ClaimResume(id string, now time.Time) (Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, err := s.load(id)
	if err != nil {
		return Instance{}, err
	}
	if in.Status != StatusSuspended {
		return Instance{}, fmt.Errorf("%w: %s is %s", ErrNotSuspended, id, in.Status)
	}
	in.Status = StatusResuming
	in.UpdatedAt = now
	if err := s.save(in); err != nil {
		return Instance{}, err
	}
	return in, nil
}

// MemoryStore is an in-process Store for tests.
type MemoryStore struct {
	mu        sync.Mutex
	instances map[string]Instance
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{instances: map[string]Instance{}}
}

// Load returns a stored snapshot.
func (s *MemoryStore) Load(id string) (Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.instances[id]
	if !ok {
		return Instance{}, ErrNotFound
	}
	return in, nil
}

// Save stores a snapshot.
func (s *MemoryStore) Save(in Instance) error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("instance: save requires an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[in.ID] = in
	return nil
}

// List returns every stored instance, newest first.
func (s *MemoryStore) List() ([]Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Instance, 0, len(s.instances))
	for _, in := range s.instances {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ClaimResume transitions suspended -> resuming atomically.
func (s *MemoryStore) ClaimResume(id string, now time.Time) (Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.instances[id]
	if !ok {
		return Instance{}, ErrNotFound
	}
	if in.Status != StatusSuspended {
		return Instance{}, fmt.Errorf("%w: %s is %s", ErrNotSuspended, id, in.Status)
	}
	in.Status = StatusResuming
	in.UpdatedAt = now
	s.instances[id] = in
	return in, nil
}

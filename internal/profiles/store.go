package profiles

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wethinkt/go-orbitaldb/internal/config"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

// DefaultPath returns ~/.orbitaldb/profiles.json.
func DefaultPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profiles.json"), nil
}

// Store is a JSON-file backed profile collection. It is safe for concurrent use.
type Store struct {
	path string
	now  func() time.Time

	mu       sync.RWMutex
	profiles []Profile
}

// Open loads the store at path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the backing file.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.profiles = nil
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read profiles: %w", err)
	}

	var profiles []Profile
	if len(data) > 0 {
		if err := json.Unmarshal(data, &profiles); err != nil {
			return fmt.Errorf("parse %s: %w", s.path, err)
		}
	}

	s.mu.Lock()
	s.profiles = profiles
	s.mu.Unlock()
	return nil
}

// List returns all profiles sorted by name.
func (s *Store) List() []Profile {
	s.mu.RLock()
	out := make([]Profile, len(s.profiles))
	copy(out, s.profiles)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the profile with id.
func (s *Store) Get(id string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Find returns the profile whose id or name matches ref.
func (s *Store) Find(ref string) (Profile, error) {
	if p, err := s.Get(ref); err == nil {
		return p, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.Name == ref {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// Create validates in, assigns an id and timestamps, and persists it.
func (s *Store) Create(in Input) (Profile, error) {
	now := s.now().UTC()
	p := Profile{
		ID:            uuid.NewString(),
		Name:          in.Name,
		Description:   in.Description,
		DBPath:        in.DBPath,
		ReadOnly:      in.ReadOnly,
		Extensions:    in.Extensions,
		AttachedFiles: withFileIDs(in.AttachedFiles),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := append(append([]Profile(nil), s.profiles...), p)
	if err := s.writeLocked(next); err != nil {
		return Profile{}, err
	}
	s.profiles = next
	tuilog.Log.Info("Profile created", "id", p.ID, "name", p.Name)
	return p, nil
}

// Update applies u to the profile with id.
func (s *Store) Update(id string, u Update) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	p := s.profiles[idx]
	u.apply(&p)
	p.AttachedFiles = withFileIDs(p.AttachedFiles)
	p.UpdatedAt = s.now().UTC()
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}

	next := append([]Profile(nil), s.profiles...)
	next[idx] = p
	if err := s.writeLocked(next); err != nil {
		return Profile{}, err
	}
	s.profiles = next
	tuilog.Log.Info("Profile updated", "id", id)
	return p, nil
}

// Delete removes the profile with id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := append(append([]Profile(nil), s.profiles[:idx]...), s.profiles[idx+1:]...)
	if err := s.writeLocked(next); err != nil {
		return err
	}
	s.profiles = next
	tuilog.Log.Info("Profile deleted", "id", id)
	return nil
}

// put inserts or replaces p by id, keeping its timestamps.
func (s *Store) put(p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]Profile(nil), s.profiles...)
	if idx := s.indexLocked(p.ID); idx >= 0 {
		next[idx] = p
	} else {
		next = append(next, p)
	}
	if err := s.writeLocked(next); err != nil {
		return err
	}
	s.profiles = next
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i, p := range s.profiles {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// writeLocked writes profiles atomically (temp file + rename).
func (s *Store) writeLocked(profiles []Profile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create profiles dir: %w", err)
	}
	if profiles == nil {
		profiles = []Profile{}
	}
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".profiles-*.json")
	if err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write profiles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write profiles: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write profiles: %w", err)
	}
	return nil
}

func withFileIDs(files []AttachedFile) []AttachedFile {
	if len(files) == 0 {
		return files
	}
	out := make([]AttachedFile, len(files))
	for i, f := range files {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		if f.Type == "" {
			f.Type = FileAuto
		}
		out[i] = f
	}
	return out
}

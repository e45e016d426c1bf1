// Package prefs persists user preferences behind a small key/value Storage
// interface and implements the dark mode controller on top of it.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/perfdash/perfdash/internal/errors"
)

// Storage is a string key/value store with local-storage semantics:
// values are opaque strings and a missing key is not an error.
type Storage interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// MemoryStorage keeps items in memory. Used by tests and --ephemeral.
type MemoryStorage struct {
	mu    sync.Mutex
	items map[string]string
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (s *MemoryStorage) GetItem(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *MemoryStorage) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *MemoryStorage) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// DefaultFileName is the preferences file inside the state dir.
const DefaultFileName = "prefs.json"

// FileStorage stores items as a flat JSON object in a single file.
// Every write rewrites the whole file through a temp file and rename.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage returns a store backed by path. The file and its parent
// directory are created on first write.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the backing file path.
func (s *FileStorage) Path() string {
	return s.path
}

func (s *FileStorage) GetItem(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := items[key]
	return v, ok, nil
}

func (s *FileStorage) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking every write.
		items = make(map[string]string)
	}
	items[key] = value
	return s.write(items)
}

func (s *FileStorage) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := items[key]; !ok {
		return nil
	}
	delete(items, key)
	return s.write(items)
}

func (s *FileStorage) read() (map[string]string, error) {
	items := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return items, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrStorage,
			"Cannot read preferences",
			"Check permissions on "+s.path)
	}
	if len(data) == 0 {
		return items, nil
	}

	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStorage,
			"Preferences file is not valid JSON",
			"Delete "+s.path+" to reset preferences")
	}
	return items, nil
}

func (s *FileStorage) write(items map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrStorage,
			"Cannot create state directory",
			"Check permissions on "+filepath.Dir(s.path))
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStorage, "Cannot encode preferences", "")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*.json")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStorage,
			"Cannot write preferences",
			"Check permissions on "+filepath.Dir(s.path))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.WrapWithCode(err, errors.ErrStorage, "Cannot write preferences", "")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.WrapWithCode(err, errors.ErrStorage, "Cannot write preferences", "")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.WrapWithCode(err, errors.ErrStorage,
			"Cannot replace preferences file",
			"Check permissions on "+s.path)
	}
	return nil
}

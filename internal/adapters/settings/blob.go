// Package settings implements the generic key-value blob store that
// persisted state round-trips through.
package settings

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"go.trai.ch/zerr"

	"go.trai.ch/quill/internal/core/ports"
)

var _ ports.SettingsStore = (*FileStore)(nil)

// FileStore implements ports.SettingsStore using a single JSON file of
// raw blobs keyed by name.
type FileStore struct {
	path  string
	mu    sync.Mutex
	blobs map[string]json.RawMessage
}

// NewFileStore creates a FileStore backed by the file at path, loading
// any existing blobs.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:  filepath.Clean(path),
		blobs: make(map[string]json.RawMessage),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path) //nolint:gosec // Path is cleaned and provided by trusted caller
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, "failed to read settings store")
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.blobs); err != nil {
		return zerr.Wrap(err, "failed to unmarshal settings store")
	}

	return nil
}

// save flushes the blobs to disk. Callers must hold s.mu. The write
// goes through a temp file plus rename so a crash mid-write cannot
// leave a truncated store behind.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.blobs, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal settings store")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return zerr.Wrap(err, "failed to create directory for settings store")
	}

	tmp := s.path + ".tmp"
	//nolint:gosec // Path is cleaned and provided by trusted caller
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return zerr.Wrap(err, "failed to write settings store")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return zerr.Wrap(err, "failed to replace settings store")
	}

	return nil
}

// Get returns the blob stored under key.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return blob, true, nil
}

// Put stores the blob under key and flushes synchronously.
func (s *FileStore) Put(key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = json.RawMessage(blob)
	return s.save()
}

// Delete removes the blob stored under key. Absent keys are a no-op.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[key]; !ok {
		return nil
	}
	delete(s.blobs, key)
	return s.save()
}

// Package cache implements the content-addressed artifact store and its
// per-document reverse index.
package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"go.trai.ch/zerr"

	"go.trai.ch/quill/internal/core/ports"
)

const (
	// VectorExt is the extension of the cached vector artifact files.
	VectorExt = ".svg"
	// RasterExt is the extension of the optional sibling raster files.
	RasterExt = ".png"

	// indexKey is the settings-store key the reverse index round-trips
	// through.
	indexKey = "render-index"
)

var _ ports.CacheStore = (*Store)(nil)

// indexEntry is the persisted form of one cache entry: the in-memory
// owner set flattens to an ordered owner list.
type indexEntry struct {
	Hash   string   `json:"hash"`
	Owners []string `json:"owners"`
}

// Store holds the reverse index in memory and the artifact files in the
// cache folder. One mutex guards every index mutation so that the
// check-then-write span of concurrent renders cannot interleave into a
// corrupt owner set.
type Store struct {
	folder   string
	settings ports.SettingsStore
	logger   ports.Logger

	mu    sync.Mutex
	index map[string]map[string]struct{}
}

// NewStore creates a Store over the given cache folder. Initialize must
// be called before use.
func NewStore(folder string, settings ports.SettingsStore, logger ports.Logger) *Store {
	return &Store{
		folder:   filepath.Clean(folder),
		settings: settings,
		logger:   logger,
		index:    make(map[string]map[string]struct{}),
	}
}

// Initialize prepares the cache folder. An absent folder is created and
// the store starts with an empty index even if a persisted index exists
// (first-run semantics for a fresh folder); otherwise the persisted
// (hash, owner-list) pairs are loaded into the reverse index.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = make(map[string]map[string]struct{})

	if _, err := os.Stat(s.folder); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return zerr.With(zerr.Wrap(err, "failed to stat cache folder"), "folder", s.folder)
		}
		if err := os.MkdirAll(s.folder, 0o750); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to create cache folder"), "folder", s.folder)
		}
		return nil
	}

	blob, ok, err := s.settings.Get(indexKey)
	if err != nil {
		return zerr.Wrap(err, "failed to load persisted index")
	}
	if !ok {
		return nil
	}

	var entries []indexEntry
	if err := json.Unmarshal(blob, &entries); err != nil {
		return zerr.Wrap(err, "failed to unmarshal persisted index")
	}

	for _, e := range entries {
		owners := make(map[string]struct{}, len(e.Owners))
		for _, doc := range e.Owners {
			owners[doc] = struct{}{}
		}
		if len(owners) > 0 {
			s.index[e.Hash] = owners
		}
	}

	return nil
}

// VectorPath returns the artifact file path for a hash.
func (s *Store) VectorPath(hash string) string {
	return filepath.Join(s.folder, hash+VectorExt)
}

// RasterPath returns the sibling raster file path for a hash.
func (s *Store) RasterPath(hash string) string {
	return filepath.Join(s.folder, hash+RasterExt)
}

// Lookup returns the cached markup for hash. A hit requires both the
// index entry and a readable artifact file, so an externally deleted
// artifact degrades to a miss and triggers a self-healing re-render.
func (s *Store) Lookup(hash string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[hash]; !ok {
		return nil, false
	}

	markup, err := os.ReadFile(s.VectorPath(hash)) //nolint:gosec // Path is hash-derived inside the cache folder
	if err != nil {
		// Stale index entry: the artifact was deleted externally. The
		// caller re-renders and overwrites, healing the inconsistency.
		s.logger.Warn("artifact missing for indexed hash " + hash)
		return nil, false
	}
	return markup, true
}

// Put writes the artifact files for hash and registers doc as an owner.
func (s *Store) Put(hash string, markup, raster []byte, doc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-create the folder if it vanished underneath us.
	if err := os.MkdirAll(s.folder, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create cache folder"), "folder", s.folder)
	}

	if err := os.WriteFile(s.VectorPath(hash), markup, 0o644); err != nil { //nolint:gosec // Hash-derived path
		return zerr.With(zerr.Wrap(err, "failed to write artifact"), "hash", hash)
	}
	if raster != nil {
		if err := os.WriteFile(s.RasterPath(hash), raster, 0o644); err != nil { //nolint:gosec // Hash-derived path
			return zerr.With(zerr.Wrap(err, "failed to write raster artifact"), "hash", hash)
		}
	}

	s.addOwnerLocked(hash, doc)
	return nil
}

// AddOwner inserts doc into the entry's owner set, creating the entry if
// absent.
func (s *Store) AddOwner(hash, doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addOwnerLocked(hash, doc)
}

func (s *Store) addOwnerLocked(hash, doc string) {
	owners, ok := s.index[hash]
	if !ok {
		owners = make(map[string]struct{})
		s.index[hash] = owners
	}
	owners[doc] = struct{}{}
}

// RemoveOwner removes doc from the entry's owner set. The instant the
// set empties, the entry and its artifact files are destroyed.
func (s *Store) RemoveOwner(hash, doc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeOwnerLocked(hash, doc)
}

func (s *Store) removeOwnerLocked(hash, doc string) error {
	owners, ok := s.index[hash]
	if !ok {
		return nil
	}

	delete(owners, doc)
	if len(owners) > 0 {
		return nil
	}

	delete(s.index, hash)
	return s.removeArtifacts(hash)
}

// removeArtifacts deletes the artifact files for hash. Already-missing
// files are treated as success: removal must be idempotent.
func (s *Store) removeArtifacts(hash string) error {
	for _, path := range []string{s.VectorPath(hash), s.RasterPath(hash)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return zerr.With(zerr.Wrap(err, "failed to delete artifact"), "path", path)
		}
	}
	return nil
}

// RemoveOwnerEverywhere removes doc as an owner from every entry,
// cascading entry deletion where owner sets empty out.
func (s *Store) RemoveOwnerEverywhere(doc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for hash, owners := range s.index {
		if _, ok := owners[doc]; !ok {
			continue
		}
		if err := s.removeOwnerLocked(hash, doc); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return zerr.Wrap(errors.Join(errs...), "failed to remove owner from index")
	}
	return nil
}

// Owners returns the distinct document ids appearing anywhere in the
// index, sorted.
func (s *Store) Owners() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	for _, owners := range s.index {
		for doc := range owners {
			seen[doc] = struct{}{}
		}
	}

	docs := make([]string, 0, len(seen))
	for doc := range seen {
		docs = append(docs, doc)
	}
	sort.Strings(docs)
	return docs
}

// HashesOwnedBy returns the hashes whose owner set contains doc, sorted.
func (s *Store) HashesOwnedBy(doc string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hashes []string
	for hash, owners := range s.index {
		if _, ok := owners[doc]; ok {
			hashes = append(hashes, hash)
		}
	}
	sort.Strings(hashes)
	return hashes
}

// Persist serializes the index back to ordered (hash, owner-list) pairs
// and hands it to the settings store.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]indexEntry, 0, len(s.index))
	for hash, owners := range s.index {
		docs := make([]string, 0, len(owners))
		for doc := range owners {
			docs = append(docs, doc)
		}
		sort.Strings(docs)
		entries = append(entries, indexEntry{Hash: hash, Owners: docs})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Hash < entries[j].Hash })

	blob, err := json.Marshal(entries)
	if err != nil {
		return zerr.Wrap(err, "failed to marshal index")
	}
	if err := s.settings.Put(indexKey, blob); err != nil {
		return zerr.Wrap(err, "failed to persist index")
	}
	return nil
}

// Teardown recursively removes the cache folder and clears the index.
func (s *Store) Teardown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.folder); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to remove cache folder"), "folder", s.folder)
	}
	s.index = make(map[string]map[string]struct{})

	if err := s.settings.Delete(indexKey); err != nil {
		return zerr.Wrap(err, "failed to drop persisted index")
	}
	return nil
}

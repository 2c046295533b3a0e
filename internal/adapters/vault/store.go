// Package vault implements the document store over a directory of
// markdown files.
package vault

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.trai.ch/zerr"

	"go.trai.ch/quill/internal/core/domain"
	"go.trai.ch/quill/internal/core/ports"
)

var _ ports.DocumentStore = (*Store)(nil)

// skipDirectories are directories never scanned for documents.
var skipDirectories = map[string]bool{
	".git":         true,
	".jj":          true,
	"node_modules": true,
}

// Store implements ports.DocumentStore over a vault root directory.
// Document ids are cleaned vault-relative paths; a renamed document is a
// new identity, the dangling old one is pruned by the next sweep.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Root returns the vault root directory.
func (s *Store) Root() string {
	return s.root
}

// List returns the ids of every markdown document in the vault, sorted.
func (s *Store) List() ([]string, error) {
	var docs []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != s.root && (skipDirectories[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		docs = append(docs, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to list documents"), "root", s.root)
	}
	sort.Strings(docs)
	return docs, nil
}

// Exists reports whether the document still exists in the vault.
func (s *Store) Exists(doc string) bool {
	info, err := os.Stat(s.abs(doc))
	return err == nil && !info.IsDir()
}

// Read returns the document content.
func (s *Store) Read(doc string) ([]byte, error) {
	data, err := os.ReadFile(s.abs(doc)) //nolint:gosec // Vault-relative path resolved against the root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, zerr.With(zerr.Wrap(domain.ErrDocumentNotFound, "failed to read document"), "doc", doc)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read document"), "doc", doc)
	}
	return data, nil
}

// Rel converts an absolute path inside the vault to a document id.
// ok is false when path lies outside the vault.
func (s *Store) Rel(path string) (doc string, ok bool) {
	rel, err := filepath.Rel(s.root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (s *Store) abs(doc string) string {
	return filepath.Join(s.root, filepath.FromSlash(doc))
}

package reconcile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/quill/internal/adapters/cache"
	"go.trai.ch/quill/internal/adapters/hash"
	"go.trai.ch/quill/internal/adapters/markdown"
	"go.trai.ch/quill/internal/adapters/settings"
	"go.trai.ch/quill/internal/adapters/vault"
	"go.trai.ch/quill/internal/engine/reconcile"
)

type nopLogger struct{}

func (nopLogger) Info(string) {}
func (nopLogger) Warn(string) {}
func (nopLogger) Error(error) {}

type fixture struct {
	root   string
	blob   *settings.FileStore
	store  *cache.Store
	docs   *vault.Store
	hasher *hash.Hasher
	rec    *reconcile.Reconciler
	keeper *reconcile.Housekeeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	blob, err := settings.NewFileStore(filepath.Join(root, ".quill", "settings.json"))
	require.NoError(t, err)

	store := cache.NewStore(filepath.Join(root, ".quill", "cache"), blob, nopLogger{})
	require.NoError(t, store.Initialize())

	docs := vault.NewStore(root)
	hasher := hash.NewHasher()
	rec := reconcile.NewReconciler(store, docs, markdown.NewScanner(), hasher, nopLogger{})

	return &fixture{
		root:   root,
		blob:   blob,
		store:  store,
		docs:   docs,
		hasher: hasher,
		rec:    rec,
		keeper: reconcile.NewHousekeeper(store, docs, rec, nopLogger{}),
	}
}

func (f *fixture) writeDoc(t *testing.T, doc string, sources ...string) {
	t.Helper()
	var content string
	for _, src := range sources {
		content += "```typst\n" + src + "\n```\n\n"
	}
	path := filepath.Join(f.root, filepath.FromSlash(doc))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// renderInto simulates a completed render: artifact stored, owner
// registered.
func (f *fixture) renderInto(t *testing.T, doc, src string) string {
	t.Helper()
	h := f.hasher.Hash(src)
	require.NoError(t, f.store.Put(h, []byte("<svg><!-- "+src+" --></svg>"), nil, doc))
	return h
}

func TestReconcile_DropsEditedBlocks(t *testing.T) {
	f := newFixture(t)

	// Scenario A: one document, two blocks, then one block is removed.
	f.writeDoc(t, "d.md", "x", "y")
	h1 := f.renderInto(t, "d.md", "x")
	h2 := f.renderInto(t, "d.md", "y")

	f.writeDoc(t, "d.md", "x")
	require.NoError(t, f.rec.Reconcile("d.md"))

	assert.Equal(t, []string{h1}, f.store.HashesOwnedBy("d.md"))
	_, ok := f.store.Lookup(h2)
	assert.False(t, ok, "h2's entry and artifact must be gone")
	_, ok = f.store.Lookup(h1)
	assert.True(t, ok)
}

func TestReconcile_SharedBlockSurvivesOtherOwner(t *testing.T) {
	f := newFixture(t)

	// Scenario B: two documents share the identical source "z".
	f.writeDoc(t, "a.md", "z")
	f.writeDoc(t, "b.md", "z")
	h := f.renderInto(t, "a.md", "z")
	f.store.AddOwner(h, "b.md")

	f.writeDoc(t, "a.md")
	require.NoError(t, f.rec.Reconcile("a.md"))

	assert.Empty(t, f.store.HashesOwnedBy("a.md"))
	assert.Equal(t, []string{h}, f.store.HashesOwnedBy("b.md"))
	_, ok := f.store.Lookup(h)
	assert.True(t, ok, "artifact must remain while b.md owns it")
}

func TestReconcile_UnchangedDocumentIsIdempotent(t *testing.T) {
	f := newFixture(t)

	f.writeDoc(t, "d.md", "x", "y")
	f.renderInto(t, "d.md", "x")
	f.renderInto(t, "d.md", "y")

	require.NoError(t, f.rec.Reconcile("d.md"))
	before := f.store.HashesOwnedBy("d.md")

	require.NoError(t, f.rec.Reconcile("d.md"))
	assert.Equal(t, before, f.store.HashesOwnedBy("d.md"))
	assert.Len(t, before, 2)
}

func TestReconcile_MissingDocumentErrors(t *testing.T) {
	f := newFixture(t)
	require.Error(t, f.rec.Reconcile("never-existed.md"))
}

func TestSweep_PrunesDeletedDocuments(t *testing.T) {
	f := newFixture(t)

	f.writeDoc(t, "kept.md", "x")
	hKept := f.renderInto(t, "kept.md", "x")
	hGone := f.renderInto(t, "gone.md", "y") // document never written

	require.NoError(t, f.keeper.Sweep())

	assert.Equal(t, []string{"kept.md"}, f.store.Owners())
	_, ok := f.store.Lookup(hGone)
	assert.False(t, ok, "orphaned entry and artifact must be deleted")
	_, ok = f.store.Lookup(hKept)
	assert.True(t, ok)
}

func TestSweep_DelegatesReconciliation(t *testing.T) {
	f := newFixture(t)

	f.writeDoc(t, "d.md", "x")
	f.renderInto(t, "d.md", "x")
	stale := f.renderInto(t, "d.md", "edited away")

	require.NoError(t, f.keeper.Sweep())

	assert.Equal(t, 1, len(f.store.HashesOwnedBy("d.md")))
	_, ok := f.store.Lookup(stale)
	assert.False(t, ok)
}

func TestSweep_AlwaysPersists(t *testing.T) {
	f := newFixture(t)

	f.writeDoc(t, "d.md", "x")
	h := f.renderInto(t, "d.md", "x")

	// Nothing to mutate, the index must still be flushed.
	require.NoError(t, f.keeper.Sweep())

	blob, ok, err := f.blob.Get("render-index")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(blob), h)
}

func TestSweep_IsIdempotent(t *testing.T) {
	f := newFixture(t)

	f.writeDoc(t, "d.md", "x")
	f.renderInto(t, "d.md", "x")
	f.renderInto(t, "gone.md", "y")

	require.NoError(t, f.keeper.Sweep())
	require.NoError(t, f.keeper.Sweep())

	assert.Equal(t, []string{"d.md"}, f.store.Owners())
}

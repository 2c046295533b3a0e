package app_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/quill/internal/adapters/config"
	"go.trai.ch/quill/internal/adapters/hash"
	"go.trai.ch/quill/internal/adapters/markdown"
	"go.trai.ch/quill/internal/app"
	"go.trai.ch/quill/internal/core/domain"
	"go.trai.ch/quill/internal/core/ports"
)

type nopLogger struct{}

func (nopLogger) Info(string) {}
func (nopLogger) Warn(string) {}
func (nopLogger) Error(error) {}

// recordLogger captures error reports for assertions.
type recordLogger struct {
	mu   sync.Mutex
	errs []string
}

func (l *recordLogger) Info(string) {}
func (l *recordLogger) Warn(string) {}

func (l *recordLogger) Error(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err.Error())
}

func (l *recordLogger) joined() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.errs, "\n")
}

func newApp() *app.App {
	return newAppWith(nopLogger{})
}

func newAppWith(log ports.Logger) *app.App {
	return app.New(log, &config.FileConfigLoader{}, hash.NewHasher(), markdown.NewScanner())
}

func writeVault(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// copyConfig wires a renderer that copies the input to the expected
// vector artifact, standing in for the real external tool.
const copyConfig = "renderer:\n  command: cp {hash}.typ {hash}.svg\n"

func TestRender_WarmsCacheAcrossVault(t *testing.T) {
	root := t.TempDir()
	writeVault(t, root, map[string]string{
		"quill.yaml": copyConfig,
		"a.md":       "# A\n\n```typst\n$ x $\n```\n",
		"sub/b.md":   "```typst\n$ y $\n```\n",
		"plain.md":   "no blocks here\n",
	})

	a := newApp()
	require.NoError(t, a.Render(context.Background(), nil, app.RunOptions{Root: root}))

	hx := hash.NewHasher().Hash("$ x $")
	hy := hash.NewHasher().Hash("$ y $")
	assert.FileExists(t, filepath.Join(root, ".quill", "cache", hx+".svg"))
	assert.FileExists(t, filepath.Join(root, ".quill", "cache", hy+".svg"))

	// The sweep ran on the way out, so the index hit disk.
	blob, err := os.ReadFile(filepath.Join(root, ".quill", "settings.json"))
	require.NoError(t, err)
	assert.Contains(t, string(blob), hx)
	assert.Contains(t, string(blob), "a.md")
	assert.Contains(t, string(blob), "sub/b.md")
}

func TestRender_SecondPassPrunesEditedBlocks(t *testing.T) {
	root := t.TempDir()
	writeVault(t, root, map[string]string{
		"quill.yaml": copyConfig,
		"d.md":       "```typst\n$ old $\n```\n",
	})

	a := newApp()
	require.NoError(t, a.Render(context.Background(), nil, app.RunOptions{Root: root}))
	hOld := hash.NewHasher().Hash("$ old $")
	require.FileExists(t, filepath.Join(root, ".quill", "cache", hOld+".svg"))

	writeVault(t, root, map[string]string{"d.md": "```typst\n$ new $\n```\n"})
	require.NoError(t, a.Render(context.Background(), nil, app.RunOptions{Root: root}))

	hNew := hash.NewHasher().Hash("$ new $")
	assert.FileExists(t, filepath.Join(root, ".quill", "cache", hNew+".svg"))
	assert.NoFileExists(t, filepath.Join(root, ".quill", "cache", hOld+".svg"))
}

func TestRender_DeletedDocumentIsSweptOut(t *testing.T) {
	root := t.TempDir()
	writeVault(t, root, map[string]string{
		"quill.yaml": copyConfig,
		"gone.md":    "```typst\n$ g $\n```\n",
		"kept.md":    "```typst\n$ k $\n```\n",
	})

	a := newApp()
	require.NoError(t, a.Render(context.Background(), nil, app.RunOptions{Root: root}))

	require.NoError(t, os.Remove(filepath.Join(root, "gone.md")))
	require.NoError(t, a.Render(context.Background(), nil, app.RunOptions{Root: root}))

	hg := hash.NewHasher().Hash("$ g $")
	hk := hash.NewHasher().Hash("$ k $")
	assert.NoFileExists(t, filepath.Join(root, ".quill", "cache", hg+".svg"))
	assert.FileExists(t, filepath.Join(root, ".quill", "cache", hk+".svg"))
}

func TestRender_RenderFailureSurfacesDiagnostics(t *testing.T) {
	root := t.TempDir()
	writeVault(t, root, map[string]string{
		"quill.yaml": "renderer:\n  command: sh -c \"echo 'compile error' >&2; exit 1\"\n",
		"d.md":       "```typst\n$ broken $\n```\n",
	})

	log := &recordLogger{}
	err := newAppWith(log).Render(context.Background(), nil, app.RunOptions{Root: root})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRenderFailed)

	// The captured renderer output reaches the user, not just the exit
	// status.
	assert.Contains(t, log.joined(), "compile error")
	assert.Contains(t, log.joined(), "--- stderr ---")
}

func TestRender_BrokenBlockDoesNotAbortOthers(t *testing.T) {
	root := t.TempDir()
	writeVault(t, root, map[string]string{
		"quill.yaml": "renderer:\n  command: sh -c \"grep -q FAILME {hash}.typ && exit 1; cp {hash}.typ {hash}.svg\"\n",
		"bad.md":     "```typst\nFAILME\n```\n\n```typst\n$ second $\n```\n",
		"good.md":    "```typst\n$ good $\n```\n",
	})

	log := &recordLogger{}
	err := newAppWith(log).Render(context.Background(), nil, app.RunOptions{Root: root})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRenderFailed)

	// The failure is per-block: the sibling document and the remaining
	// block of the failing document still render and get cached.
	hGood := hash.NewHasher().Hash("$ good $")
	hSecond := hash.NewHasher().Hash("$ second $")
	hBad := hash.NewHasher().Hash("FAILME")
	assert.FileExists(t, filepath.Join(root, ".quill", "cache", hGood+".svg"))
	assert.FileExists(t, filepath.Join(root, ".quill", "cache", hSecond+".svg"))
	assert.NoFileExists(t, filepath.Join(root, ".quill", "cache", hBad+".svg"))

	assert.NotEmpty(t, log.joined(), "the broken block must be reported")
}

func TestRender_MalformedConfigErrors(t *testing.T) {
	root := t.TempDir()
	writeVault(t, root, map[string]string{
		"quill.yaml": "renderer: [not a mapping\n",
	})

	err := newApp().Render(context.Background(), nil, app.RunOptions{Root: root})
	require.Error(t, err)
}

func TestClean_ResetsCacheAndIndex(t *testing.T) {
	root := t.TempDir()
	writeVault(t, root, map[string]string{
		"quill.yaml": copyConfig,
		"d.md":       "```typst\n$ x $\n```\n",
	})

	a := newApp()
	require.NoError(t, a.Render(context.Background(), nil, app.RunOptions{Root: root}))
	h := hash.NewHasher().Hash("$ x $")
	require.FileExists(t, filepath.Join(root, ".quill", "cache", h+".svg"))

	require.NoError(t, a.Clean(app.RunOptions{Root: root}))

	assert.NoFileExists(t, filepath.Join(root, ".quill", "cache", h+".svg"))
	assert.DirExists(t, filepath.Join(root, ".quill", "cache"))

	blob, err := os.ReadFile(filepath.Join(root, ".quill", "settings.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(blob), h)
}

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/quill/internal/adapters/config"
	"go.trai.ch/quill/internal/adapters/hash"
	"go.trai.ch/quill/internal/adapters/logger"
	"go.trai.ch/quill/internal/adapters/markdown"
	"go.trai.ch/quill/internal/app"
)

func testProvider(_ context.Context) (*app.Components, error) {
	log := logger.New()
	a := app.New(log, &config.FileConfigLoader{}, hash.NewHasher(), markdown.NewScanner())
	return app.NewComponents(a, log), nil
}

// TestRun_Success verifies that run returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, testProvider)
	assert.Equal(t, 0, exitCode)
}

// TestRun_InitializationError verifies that run returns 1 when component
// initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, error) {
		return nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_RenderFailurePrintsDiagnostics verifies that the renderer's
// captured output reaches the user when a block fails to compile.
func TestRun_RenderFailurePrintsDiagnostics(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "quill.yaml"),
		[]byte("renderer:\n  command: \"sh -c \\\"echo 'error: unknown variable' >&2; exit 1\\\"\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "d.md"),
		[]byte("```typst\n$ x $\n```\n"), 0o644))

	logOut := new(bytes.Buffer)
	provider := func(_ context.Context) (*app.Components, error) {
		log := logger.New()
		log.SetOutput(logOut)
		a := app.New(log, &config.FileConfigLoader{}, hash.NewHasher(), markdown.NewScanner())
		return app.NewComponents(a, log), nil
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"render", "--root", root}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, logOut.String(), "error: unknown variable")
}

// TestRun_ExecutionError verifies that run returns 1 when the command fails.
func TestRun_ExecutionError(t *testing.T) {
	root := t.TempDir()

	stderr := new(bytes.Buffer)
	// The render command fails because the config file is malformed.
	exitCode := run(context.Background(),
		[]string{"render", "--root", root, "--config", "/nonexistent/dir/quill.yaml/nested"},
		stderr, testProvider)

	assert.Equal(t, 1, exitCode)
}

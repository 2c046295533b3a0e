// Package renderer implements the render pipeline: it materializes the
// compile input, invokes the external renderer, and post-processes the
// vector output.
package renderer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/zerr"

	"go.trai.ch/quill/internal/core/domain"
	"go.trai.ch/quill/internal/core/ports"
)

const (
	sourceExt = ".typ"
	vectorExt = ".svg"
	rasterExt = ".png"
)

// inputTemplate is the fixed document template the block source is
// wrapped in. The page auto-sizes to the content so artifacts embed
// tightly into the host container.
const inputTemplate = "#set page(width: auto, height: auto, margin: 0.5em)\n"

var _ ports.Renderer = (*Pipeline)(nil)

// Pipeline implements ports.Renderer by invoking the user-configured
// external command in a per-render temporary working directory.
type Pipeline struct {
	settings domain.RendererSettings
	raster   domain.RasterSettings
	// workRoot is the directory temp workdirs are created under; empty
	// means the system temp dir.
	workRoot string
	logger   ports.Logger
}

// NewPipeline creates a Pipeline with the given configuration.
func NewPipeline(settings domain.RendererSettings, raster domain.RasterSettings, workRoot string, logger ports.Logger) *Pipeline {
	return &Pipeline{
		settings: settings,
		raster:   raster,
		workRoot: workRoot,
		logger:   logger,
	}
}

// Render executes the pipeline for the request. The returned artifact
// carries the unprefixed vector markup; callers apply a fresh identifier
// prefix on every serve.
//
// The temporary working directory is intentionally left on disk when the
// renderer fails, so the user can inspect the compile input and any
// partial output.
func (p *Pipeline) Render(ctx context.Context, req domain.RenderRequest) (*domain.Artifact, error) {
	if strings.TrimSpace(p.settings.Command) == "" {
		return nil, domain.ErrNoRendererCommand
	}

	workdir, err := os.MkdirTemp(p.workRoot, "render-")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create render workdir")
	}

	input := composeInput(p.settings.Preamble, req.Source)
	srcPath := filepath.Join(workdir, req.Hash+sourceExt)
	if err := os.WriteFile(srcPath, []byte(input), 0o644); err != nil { //nolint:gosec // Hash-derived path inside the workdir
		return nil, zerr.With(zerr.Wrap(err, "failed to write compile input"), "path", srcPath)
	}

	stdout, stderr, err := p.invoke(ctx, workdir, p.settings.Command, req.Hash)
	if err != nil {
		return nil, &domain.RenderFailure{Err: err, Stdout: stdout, Stderr: stderr}
	}

	markup, err := os.ReadFile(filepath.Join(workdir, req.Hash+vectorExt)) //nolint:gosec // Hash-derived path inside the workdir
	if err != nil {
		return nil, &domain.RenderFailure{
			Err:    zerr.Wrap(domain.ErrMissingArtifact, err.Error()),
			Stdout: stdout,
			Stderr: stderr,
		}
	}

	var raster []byte
	if p.raster.Enabled && strings.TrimSpace(p.raster.Command) != "" {
		raster = p.rasterize(ctx, workdir, req.Hash)
	}

	return &domain.Artifact{Hash: req.Hash, Markup: markup, Raster: raster}, nil
}

// rasterize runs the secondary raster pass in the same workdir. Raster
// output is a nicety beside the vector artifact, so a failed pass only
// warns and the render still succeeds.
func (p *Pipeline) rasterize(ctx context.Context, workdir, hash string) []byte {
	command := strings.ReplaceAll(p.raster.Command, domain.ScalePlaceholder,
		strconv.FormatFloat(p.raster.Scale, 'f', -1, 64))

	if _, stderr, err := p.invoke(ctx, workdir, command, hash); err != nil {
		p.logger.Warn("raster pass failed for " + hash + ": " + err.Error() + " " + stderr)
		return nil
	}

	raster, err := os.ReadFile(filepath.Join(workdir, hash+rasterExt)) //nolint:gosec // Hash-derived path inside the workdir
	if err != nil {
		p.logger.Warn("raster pass produced no output for " + hash)
		return nil
	}
	return raster
}

// invoke substitutes the hash placeholder into the command template and
// runs it with the workdir as working directory, the inherited
// environment, and the configured timeout. On timeout the process is
// killed and the error says so.
func (p *Pipeline) invoke(ctx context.Context, workdir, template, hash string) (stdout, stderr string, err error) {
	argv, err := splitCommand(strings.ReplaceAll(template, domain.HashPlaceholder, hash))
	if err != nil {
		return "", "", err
	}
	if len(argv) == 0 {
		return "", "", domain.ErrNoRendererCommand
	}

	ctx, cancel := context.WithTimeout(ctx, p.settings.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // User-configured renderer command
	cmd.Dir = workdir
	// cmd.Env nil inherits the process environment.

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout, stderr = outBuf.String(), errBuf.String()

	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return stdout, stderr, zerr.With(zerr.Wrap(runErr, "renderer timed out"),
				"timeout", p.settings.Timeout.String())
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return stdout, stderr, zerr.With(zerr.Wrap(runErr, "renderer exited with error"),
				"exit_code", exitErr.ExitCode())
		}
		return stdout, stderr, zerr.Wrap(runErr, "failed to start renderer")
	}
	return stdout, stderr, nil
}

// composeInput wraps the raw block source in the fixed document template
// plus the user-configured preamble.
func composeInput(preamble, source string) string {
	var b strings.Builder
	b.WriteString(inputTemplate)
	if preamble != "" {
		b.WriteString(preamble)
		if !strings.HasSuffix(preamble, "\n") {
			b.WriteByte('\n')
		}
	}
	b.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}

package domain

import "go.trai.ch/zerr"

var (
	// ErrRenderFailed classifies render pipeline failures. A
	// *RenderFailure matches it via errors.Is while still carrying the
	// captured diagnostics.
	ErrRenderFailed = zerr.New("render failed")

	// ErrDocumentNotFound is returned when a requested document does not
	// exist in the vault.
	ErrDocumentNotFound = zerr.New("document not found")

	// ErrNoRendererCommand is returned when a render is attempted with an
	// empty renderer command template.
	ErrNoRendererCommand = zerr.New("renderer command not configured")

	// ErrMissingArtifact is returned when the renderer exited successfully
	// but did not produce the expected output artifact.
	ErrMissingArtifact = zerr.New("renderer produced no artifact")
)

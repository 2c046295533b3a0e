package ports

import (
	"context"

	"go.trai.ch/quill/internal/core/domain"
)

// Renderer produces a vector artifact from a typeset-source fragment by
// invoking the external renderer process.
//
//go:generate go run go.uber.org/mock/mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Render executes the pipeline for the request. On process failure,
	// nonzero exit, or timeout the returned error is a
	// *domain.RenderFailure carrying the captured standard streams.
	Render(ctx context.Context, req domain.RenderRequest) (*domain.Artifact, error)
}

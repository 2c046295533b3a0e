// Package render orchestrates a document-render event: hash, cache
// consult, coalesced pipeline invocation, owner registration, and
// debounced sweep scheduling.
package render

import (
	"context"

	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"

	"go.trai.ch/quill/internal/adapters/renderer"
	"go.trai.ch/quill/internal/core/domain"
	"go.trai.ch/quill/internal/core/ports"
)

// Coordinator drives the cache-or-render decision for a single block.
//
// Concurrent requests for an identical hash are coalesced through a
// singleflight group, so two simultaneous identical blocks cost one
// external process invocation instead of racing to write the same
// artifact.
type Coordinator struct {
	hasher   ports.Hasher
	store    ports.CacheStore
	pipeline ports.Renderer
	logger   ports.Logger

	cacheEnabled bool
	flight       singleflight.Group

	// schedule is invoked after every render event to arrange the
	// debounced housekeeping sweep. May be nil in tests.
	schedule func(doc string)
}

// NewCoordinator creates a Coordinator with the given dependencies.
func NewCoordinator(
	hasher ports.Hasher,
	store ports.CacheStore,
	pipeline ports.Renderer,
	logger ports.Logger,
	cacheEnabled bool,
	schedule func(doc string),
) *Coordinator {
	return &Coordinator{
		hasher:       hasher,
		store:        store,
		pipeline:     pipeline,
		logger:       logger,
		cacheEnabled: cacheEnabled,
		schedule:     schedule,
	}
}

// RenderBlock resolves a block to its artifact: a cache hit serves the
// stored markup, a miss renders and persists. Either way the block's
// document is registered as an owner and a sweep is scheduled.
//
// The served markup carries a fresh random identifier prefix on every
// call, so multiple embeddings of the same artifact in one page never
// collide on element ids.
func (c *Coordinator) RenderBlock(ctx context.Context, block domain.SourceBlock) (*domain.Artifact, error) {
	hash := c.hasher.Hash(block.Source)
	if c.schedule != nil {
		defer c.schedule(block.Document)
	}

	if c.cacheEnabled {
		if markup, ok := c.store.Lookup(hash); ok {
			c.store.AddOwner(hash, block.Document)
			return serve(hash, markup), nil
		}
	}

	v, err, _ := c.flight.Do(hash, func() (any, error) {
		return c.pipeline.Render(ctx, domain.RenderRequest{
			Source: block.Source,
			Hash:   hash,
			Style:  block.Style,
		})
	})
	if err != nil {
		return nil, err
	}
	art, ok := v.(*domain.Artifact)
	if !ok || art == nil {
		return nil, zerr.New("renderer returned no artifact")
	}

	if c.cacheEnabled {
		if err := c.store.Put(hash, art.Markup, art.Raster, block.Document); err != nil {
			return nil, err
		}
	}

	return serve(hash, art.Markup), nil
}

// serve returns a freshly prefixed copy of the stored markup.
func serve(hash string, markup []byte) *domain.Artifact {
	return &domain.Artifact{
		Hash:   hash,
		Markup: renderer.ApplyPrefix(markup, renderer.NewPrefix()),
	}
}

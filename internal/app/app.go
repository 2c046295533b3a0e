// Package app implements the application layer for quill.
package app

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"go.trai.ch/quill/internal/adapters/cache"
	"go.trai.ch/quill/internal/adapters/config"
	"go.trai.ch/quill/internal/adapters/renderer"
	"go.trai.ch/quill/internal/adapters/settings"
	"go.trai.ch/quill/internal/adapters/vault"
	"go.trai.ch/quill/internal/adapters/watcher"
	"go.trai.ch/quill/internal/core/domain"
	"go.trai.ch/quill/internal/core/ports"
	"go.trai.ch/quill/internal/engine/reconcile"
	"go.trai.ch/quill/internal/engine/render"
)

// sweepWindow is the quiet period after the last render event before
// the housekeeping sweep runs.
const sweepWindow = 2 * time.Second

// RunOptions carries the per-invocation knobs shared by all commands.
type RunOptions struct {
	// Root is the vault directory. Defaults to the working directory.
	Root string
	// ConfigPath points at the configuration file. Empty means
	// <root>/quill.yaml, which may be absent.
	ConfigPath string
	// Jobs bounds concurrent document renders. Zero means NumCPU.
	Jobs int
}

// App represents the main application logic.
type App struct {
	logger  ports.Logger
	loader  ports.ConfigLoader
	hasher  ports.Hasher
	scanner ports.BlockScanner
}

// New creates a new App instance.
func New(logger ports.Logger, loader ports.ConfigLoader, hasher ports.Hasher, scanner ports.BlockScanner) *App {
	return &App{
		logger:  logger,
		loader:  loader,
		hasher:  hasher,
		scanner: scanner,
	}
}

// session is the fully wired per-invocation component stack. Most of
// the stack depends on loaded configuration, so it cannot exist before
// a command runs.
type session struct {
	cfg      *domain.Settings
	docs     *vault.Store
	store    *cache.Store
	scanner  ports.BlockScanner
	keeper   *reconcile.Housekeeper
	coord    *render.Coordinator
	debounce *watcher.Debouncer
	logger   ports.Logger
}

func (a *App) open(opts RunOptions) (*session, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(root, config.DefaultFilename)
	}

	cfg, err := a.loader.Load(configPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	cacheDir := cfg.Cache.Folder
	if !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(root, cacheDir)
	}

	blob, err := settings.NewFileStore(filepath.Join(filepath.Dir(cacheDir), "settings.json"))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to open settings store")
	}

	store := cache.NewStore(cacheDir, blob, a.logger)
	if err := store.Initialize(); err != nil {
		return nil, zerr.Wrap(err, "failed to initialize cache store")
	}

	docs := vault.NewStore(root)
	rec := reconcile.NewReconciler(store, docs, a.scanner, a.hasher, a.logger)
	keeper := reconcile.NewHousekeeper(store, docs, rec, a.logger)

	s := &session{
		cfg:     cfg,
		docs:    docs,
		store:   store,
		scanner: a.scanner,
		keeper:  keeper,
		logger:  a.logger,
	}
	s.debounce = watcher.NewDebouncer(sweepWindow, func([]string) {
		if err := keeper.Sweep(); err != nil {
			a.logger.Error(zerr.Wrap(err, "housekeeping sweep failed"))
		}
	})

	pipeline := renderer.NewPipeline(cfg.Renderer, cfg.Raster, cacheDir, a.logger)
	s.coord = render.NewCoordinator(a.hasher, store, pipeline, a.logger, cfg.Cache.Enabled, s.debounce.Add)

	return s, nil
}

// Render resolves and renders every marked block in the given
// documents, warming the cache. An empty document list means the whole
// vault. The housekeeping sweep runs before Render returns, so the
// persisted index reflects the outcome.
func (a *App) Render(ctx context.Context, docs []string, opts RunOptions) error {
	s, err := a.open(opts)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		docs, err = s.docs.List()
		if err != nil {
			return zerr.Wrap(err, "failed to list documents")
		}
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	// Block failures are per-block, not run-fatal: they must not cancel
	// sibling documents through the errgroup context. They are recorded
	// and folded into the final result instead.
	var blockFailed atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, doc := range docs {
		g.Go(func() error {
			renderErr := s.renderDocument(gctx, doc)
			if errors.Is(renderErr, domain.ErrRenderFailed) {
				blockFailed.Store(true)
				return nil
			}
			return renderErr
		})
	}
	err = g.Wait()

	s.debounce.Flush()
	if err != nil {
		return err
	}
	if blockFailed.Load() {
		return domain.ErrRenderFailed
	}
	return nil
}

// Watch renders documents as they change until the context is
// cancelled. Deleted documents are pruned by the debounced sweep.
func (a *App) Watch(ctx context.Context, opts RunOptions) error {
	s, err := a.open(opts)
	if err != nil {
		return err
	}

	w, err := watcher.NewWatcher()
	if err != nil {
		return zerr.Wrap(err, "failed to create file watcher")
	}
	if err := w.Start(ctx, s.docs.Root()); err != nil {
		return zerr.Wrap(err, "failed to watch vault")
	}
	a.logger.Info("watching " + s.docs.Root())

	for {
		select {
		case <-ctx.Done():
			s.debounce.Flush()
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				s.debounce.Flush()
				return nil
			}
			doc, inVault := s.docs.Rel(ev.Path)
			if !inVault {
				continue
			}
			switch ev.Op {
			case watcher.OpRemove:
				s.debounce.Add(doc)
			case watcher.OpWrite:
				err := s.renderDocument(ctx, doc)
				if err != nil && !errors.Is(err, domain.ErrRenderFailed) {
					// Block failures were already reported with their
					// diagnostics inside renderDocument.
					a.logger.Error(zerr.With(err, "document", doc))
				}
			}
		}
	}
}

// Clean deletes the cache folder with everything in it and resets the
// persisted index, then re-creates an empty cache.
func (a *App) Clean(opts RunOptions) error {
	s, err := a.open(opts)
	if err != nil {
		return err
	}
	if err := s.store.Teardown(); err != nil {
		return zerr.Wrap(err, "failed to tear down cache")
	}
	if err := s.store.Initialize(); err != nil {
		return zerr.Wrap(err, "failed to re-initialize cache")
	}
	if err := s.store.Persist(); err != nil {
		return zerr.Wrap(err, "failed to persist empty index")
	}
	a.logger.Info("cache cleaned")
	return nil
}

// renderDocument renders every marked block in doc. A failed block is
// reported with its captured renderer diagnostics and does not stop the
// remaining blocks; the sentinel result still signals the failure.
func (s *session) renderDocument(ctx context.Context, doc string) error {
	content, err := s.docs.Read(doc)
	if err != nil {
		return zerr.Wrap(err, "failed to read document")
	}

	failed := false
	for _, block := range s.scanner.Scan(doc, content) {
		_, err := s.coord.RenderBlock(ctx, block)
		if err == nil {
			continue
		}

		var failure *domain.RenderFailure
		if errors.As(err, &failure) {
			s.logger.Error(zerr.With(zerr.With(
				zerr.New("block render failed\n"+failure.Diagnostic()),
				"doc", doc), "line", block.StartLine))
			failed = true
			continue
		}
		return zerr.With(zerr.Wrap(err, "failed to render block"), "line", block.StartLine)
	}

	if failed {
		return domain.ErrRenderFailed
	}
	return nil
}

package reconcile

import (
	"errors"

	"go.trai.ch/zerr"

	"go.trai.ch/quill/internal/core/ports"
)

// Housekeeper performs the global sweep: it prunes owner links to
// documents that no longer exist and reconciles the ones that do.
type Housekeeper struct {
	store      ports.CacheStore
	docs       ports.DocumentStore
	reconciler *Reconciler
	logger     ports.Logger
}

// NewHousekeeper creates a Housekeeper with the given dependencies.
func NewHousekeeper(
	store ports.CacheStore,
	docs ports.DocumentStore,
	reconciler *Reconciler,
	logger ports.Logger,
) *Housekeeper {
	return &Housekeeper{
		store:      store,
		docs:       docs,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Sweep walks every document referenced anywhere in the index. Deleted
// documents are removed as owners unconditionally; existing ones are
// delegated to the Reconciler. The updated index is persisted at the
// end regardless of whether anything was mutated, so the sweep is safe
// to run after every render event.
func (h *Housekeeper) Sweep() error {
	var errs []error

	for _, doc := range h.store.Owners() {
		if !h.docs.Exists(doc) {
			if err := h.store.RemoveOwnerEverywhere(doc); err != nil {
				errs = append(errs, err)
				continue
			}
			h.logger.Info("pruned links to deleted document " + doc)
			continue
		}
		if err := h.reconciler.Reconcile(doc); err != nil {
			errs = append(errs, err)
		}
	}

	if err := h.store.Persist(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return zerr.Wrap(joinErrors(errs), "sweep failed")
	}
	return nil
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}

// Package reconcile keeps the reverse index consistent with live
// document content: per-document reconciliation plus the global
// housekeeping sweep.
package reconcile

import (
	"go.trai.ch/zerr"

	"go.trai.ch/quill/internal/core/ports"
)

// Reconciler drops stale owner links for a single document.
type Reconciler struct {
	store   ports.CacheStore
	docs    ports.DocumentStore
	scanner ports.BlockScanner
	hasher  ports.Hasher
	logger  ports.Logger
}

// NewReconciler creates a Reconciler with the given dependencies.
func NewReconciler(
	store ports.CacheStore,
	docs ports.DocumentStore,
	scanner ports.BlockScanner,
	hasher ports.Hasher,
	logger ports.Logger,
) *Reconciler {
	return &Reconciler{
		store:   store,
		docs:    docs,
		scanner: scanner,
		hasher:  hasher,
		logger:  logger,
	}
}

// Reconcile compares the document's current blocks against the cache's
// recorded owners for that document and removes every owner link whose
// hash the document no longer contains. Removal may cascade to full
// entry deletion. Reconciling an unchanged document is a no-op.
func (r *Reconciler) Reconcile(doc string) error {
	src, err := r.docs.Read(doc)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to read document for reconciliation"), "doc", doc)
	}

	live := make(map[string]struct{})
	for _, block := range r.scanner.Scan(doc, src) {
		live[r.hasher.Hash(block.Source)] = struct{}{}
	}

	var errs []error
	for _, hash := range r.store.HashesOwnedBy(doc) {
		if _, ok := live[hash]; ok {
			continue
		}
		if err := r.store.RemoveOwner(hash, doc); err != nil {
			errs = append(errs, err)
			continue
		}
		r.logger.Info("dropped stale owner link " + doc + " -> " + hash)
	}

	if len(errs) > 0 {
		return zerr.With(zerr.Wrap(joinErrors(errs), "reconciliation failed"), "doc", doc)
	}
	return nil
}

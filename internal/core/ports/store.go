package ports

// CacheStore owns the reverse index (content hash -> set of owning
// document ids) and the on-disk artifact files.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type CacheStore interface {
	// Initialize prepares the cache folder. A fresh folder starts with an
	// empty index even if a persisted index exists; an existing folder
	// loads the persisted index.
	Initialize() error

	// Lookup returns the cached vector markup for the hash. It is a hit
	// only if the index contains the hash and the artifact file reads
	// successfully, so external deletion of artifacts degrades to a miss.
	Lookup(hash string) ([]byte, bool)

	// Put persists the artifact files for the hash and registers doc as
	// an owner, creating the index entry if absent.
	Put(hash string, markup, raster []byte, doc string) error

	// AddOwner inserts doc into the entry's owner set, creating the entry
	// if absent.
	AddOwner(hash, doc string)

	// RemoveOwner removes doc from the owner set. When the set empties,
	// the entry and its artifact files are deleted; deleting an
	// already-missing artifact is not an error.
	RemoveOwner(hash, doc string) error

	// RemoveOwnerEverywhere removes doc as owner from every entry,
	// cascading entry deletion where owner sets empty out.
	RemoveOwnerEverywhere(doc string) error

	// Owners returns the distinct document ids appearing as an owner
	// anywhere in the index.
	Owners() []string

	// HashesOwnedBy returns the hashes whose owner set contains doc.
	HashesOwnedBy(doc string) []string

	// Persist serializes the index through the settings store.
	Persist() error

	// Teardown recursively removes the cache folder. Used when the folder
	// location or cache-affecting settings change.
	Teardown() error
}

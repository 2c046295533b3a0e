package ports

// SettingsStore is the generic key-value blob store the persisted index
// round-trips through.
//
//go:generate go run go.uber.org/mock/mockgen -source=settings_store.go -destination=mocks/mock_settings_store.go -package=mocks
type SettingsStore interface {
	// Get returns the blob stored under key, with ok=false when absent.
	Get(key string) (blob []byte, ok bool, err error)

	// Put stores the blob under key, flushing synchronously.
	Put(key string, blob []byte) error

	// Delete removes the blob stored under key. Removing an absent key is
	// not an error.
	Delete(key string) error
}

package ports

// DocumentStore is the host document store collaborator: it provides
// document identities and content reads.
//
//go:generate go run go.uber.org/mock/mockgen -source=documents.go -destination=mocks/mock_documents.go -package=mocks
type DocumentStore interface {
	// List returns the ids of all documents in the vault.
	List() ([]string, error)

	// Exists reports whether the document still exists.
	Exists(doc string) bool

	// Read returns the document content.
	Read(doc string) ([]byte, error)
}

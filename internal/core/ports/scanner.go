package ports

import "go.trai.ch/quill/internal/core/domain"

// BlockScanner extracts typeset-source blocks from document content.
//
//go:generate go run go.uber.org/mock/mockgen -source=scanner.go -destination=mocks/mock_scanner.go -package=mocks
type BlockScanner interface {
	// Scan returns every block in src tagged with the reserved render
	// marker, in document order.
	Scan(doc string, src []byte) []domain.SourceBlock
}

// Package ports defines the core interfaces for the application.
package ports

// Hasher computes the content fingerprint of a typeset-source fragment.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// Hash returns a fixed-width identifier for the source text with
	// leading/trailing whitespace stripped. Pure and deterministic
	// across process restarts.
	Hash(source string) string
}

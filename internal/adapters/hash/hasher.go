// Package hash implements the content fingerprint used as the cache key.
package hash

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/quill/internal/core/ports"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher computes xxhash64 content fingerprints.
//
// Collisions between distinct sources are not handled: across a
// vault-sized corpus the probability of a 64-bit collision is
// negligible, and the index self-heals on re-render.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Hash returns the fingerprint of source with leading/trailing
// whitespace stripped. Internal whitespace is significant.
func (h *Hasher) Hash(source string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.TrimSpace(source)))
}

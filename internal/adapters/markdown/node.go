package markdown

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/quill/internal/core/ports"
)

// NodeID is the unique identifier for the block scanner Graft node.
const NodeID graft.ID = "adapter.block_scanner"

func init() {
	graft.Register(graft.Node[ports.BlockScanner]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.BlockScanner, error) {
			return NewScanner(), nil
		},
	})
}

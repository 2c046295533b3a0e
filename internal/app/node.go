package app

import (
	"context"

	"github.com/grindlemire/graft"

	"go.trai.ch/quill/internal/adapters/config"   //nolint:depguard // Wired in app layer
	"go.trai.ch/quill/internal/adapters/hash"     //nolint:depguard // Wired in app layer
	"go.trai.ch/quill/internal/adapters/logger"   //nolint:depguard // Wired in app layer
	"go.trai.ch/quill/internal/adapters/markdown" //nolint:depguard // Wired in app layer
	"go.trai.ch/quill/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			logger.NodeID,
			config.NodeID,
			hash.NodeID,
			markdown.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}

			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}

			scanner, err := graft.Dep[ports.BlockScanner](ctx)
			if err != nil {
				return nil, err
			}

			return New(log, loader, hasher, scanner), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewComponents(a, log), nil
		},
	})
}

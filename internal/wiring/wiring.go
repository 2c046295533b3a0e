// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/quill/internal/adapters/config"
	_ "go.trai.ch/quill/internal/adapters/hash"
	_ "go.trai.ch/quill/internal/adapters/logger"
	_ "go.trai.ch/quill/internal/adapters/markdown"
	// Register app nodes.
	_ "go.trai.ch/quill/internal/app"
)

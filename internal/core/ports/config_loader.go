package ports

import "go.trai.ch/quill/internal/core/domain"

// ConfigLoader loads the render-cache configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration file at path. An absent file yields
	// the defaults.
	Load(path string) (*domain.Settings, error)
}

// Package config provides the configuration loader for quill.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"go.trai.ch/quill/internal/core/domain"
	"go.trai.ch/quill/internal/core/ports"
)

// DefaultFilename is the configuration file looked up in the vault root.
const DefaultFilename = "quill.yaml"

// Defaults applied for absent fields.
const (
	defaultCommand       = "typst compile {hash}.typ {hash}.svg"
	defaultRasterCommand = "typst compile --format png --ppi 144 {hash}.typ {hash}.png"
	defaultTimeoutMs     = 10000
	defaultCacheFolder   = ".quill/cache"
	defaultRasterScale   = 2.0
)

var _ ports.ConfigLoader = (*FileConfigLoader)(nil)

// FileConfigLoader implements ports.ConfigLoader using a YAML file.
type FileConfigLoader struct{}

// Load reads the configuration file at path. An absent file yields the
// defaults; a malformed file is an error.
func (l *FileConfigLoader) Load(path string) (*domain.Settings, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is provided by the user
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fromDTO(&Quillfile{}), nil
		}
		return nil, zerr.Wrap(err, "failed to read config file")
	}

	var qf Quillfile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, zerr.Wrap(err, "failed to parse config file")
	}

	settings := fromDTO(&qf)
	if settings.Renderer.Timeout <= 0 {
		return nil, zerr.With(zerr.New("timeoutMs must be positive"), "timeoutMs", qf.Renderer.TimeoutMs)
	}
	if settings.Raster.Enabled && settings.Raster.Scale <= 0 {
		return nil, zerr.With(zerr.New("raster scale must be positive"), "scale", qf.Raster.Scale)
	}
	return settings, nil
}

func fromDTO(qf *Quillfile) *domain.Settings {
	s := &domain.Settings{
		Renderer: domain.RendererSettings{
			Command:  qf.Renderer.Command,
			Timeout:  time.Duration(qf.Renderer.TimeoutMs) * time.Millisecond,
			Preamble: qf.Renderer.Preamble,
		},
		Cache: domain.CacheSettings{
			Enabled: true,
			Folder:  qf.Cache.Folder,
		},
		Raster: domain.RasterSettings{
			Enabled: qf.Raster.Enabled,
			Command: qf.Raster.Command,
			Scale:   qf.Raster.Scale,
		},
	}

	if s.Renderer.Command == "" {
		s.Renderer.Command = defaultCommand
	}
	if qf.Renderer.TimeoutMs == 0 {
		s.Renderer.Timeout = defaultTimeoutMs * time.Millisecond
	}
	if qf.Cache.Enabled != nil {
		s.Cache.Enabled = *qf.Cache.Enabled
	}
	if s.Cache.Folder == "" {
		s.Cache.Folder = defaultCacheFolder
	}
	if s.Raster.Command == "" {
		s.Raster.Command = defaultRasterCommand
	}
	if qf.Raster.Scale == 0 {
		s.Raster.Scale = defaultRasterScale
	}
	return s
}

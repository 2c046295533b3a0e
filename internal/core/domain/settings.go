package domain

import "time"

// HashPlaceholder is the token in the renderer command template that is
// substituted with the content hash. The hash is an identifier, never a
// full path; the command runs with the temp workdir as its working
// directory.
const HashPlaceholder = "{hash}"

// ScalePlaceholder is the token in the raster command template that is
// substituted with the raster scale factor.
const ScalePlaceholder = "{scale}"

// RendererSettings configures the external renderer invocation.
type RendererSettings struct {
	// Command is the command template; HashPlaceholder occurrences are
	// substituted before execution.
	Command string

	// Timeout bounds a single render; the process is killed when it
	// elapses and the render is treated as a failure.
	Timeout time.Duration

	// Preamble is extra template packages/preamble text appended to the
	// fixed document template before the block source.
	Preamble string
}

// RasterSettings configures the optional secondary raster pass.
type RasterSettings struct {
	Enabled bool
	Command string
	Scale   float64
}

// CacheSettings configures the artifact cache.
type CacheSettings struct {
	Enabled bool
	// Folder is the cache folder path; relative paths are resolved
	// against the vault root.
	Folder string
}

// Settings is the full configuration surface of the render cache.
type Settings struct {
	Renderer RendererSettings
	Raster   RasterSettings
	Cache    CacheSettings
}

package config

// Quillfile represents the structure of the quill.yaml configuration
// file. Every field is optional; absent fields take the defaults.
type Quillfile struct {
	Renderer RendererDTO `yaml:"renderer"`
	Cache    CacheDTO    `yaml:"cache"`
	Raster   RasterDTO   `yaml:"raster"`
}

// RendererDTO configures the external renderer invocation.
type RendererDTO struct {
	// Command is the command template; "{hash}" is substituted with the
	// content hash before execution.
	Command   string `yaml:"command"`
	TimeoutMs int    `yaml:"timeoutMs"`
	Preamble  string `yaml:"preamble"`
}

// CacheDTO configures the artifact cache.
type CacheDTO struct {
	Enabled *bool  `yaml:"enabled"`
	Folder  string `yaml:"folder"`
}

// RasterDTO configures the optional secondary raster pass.
type RasterDTO struct {
	Enabled bool    `yaml:"enabled"`
	Command string  `yaml:"command"`
	Scale   float64 `yaml:"scale"`
}

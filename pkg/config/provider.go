package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetInputConfig() (*InputData, error)
	GetComputeConfig() (*ComputeData, error)
	GetOutputConfig() (*OutputData, error)
	GetCatalogConfig() (*CatalogData, error)
	GetServerConfig() (*ServerData, error)

	// Configuration management (for SQLite-specific operations)
	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Input   InputData   `json:"input"`
	Compute ComputeData `json:"compute,omitempty"`
	Output  OutputData  `json:"output"`
	Catalog CatalogData `json:"catalog,omitempty"`
	Server  *ServerData `json:"server,omitempty"`
}

// InputData holds configuration for the classification raster inputs
type InputData struct {
	// Directory is scanned non-recursively for date-named rasters.
	Directory string `json:"directory"`
	// DateLayout is the Go time layout the filename stem must match.
	// Empty means the 2006_01_02 convention.
	DateLayout string `json:"date_layout,omitempty"`
	// Extensions limits the scan to these raster extensions. Empty means
	// .tif, .tiff and .bil.
	Extensions []string `json:"extensions,omitempty"`
}

// ComputeData holds configuration for the accumulation stage
type ComputeData struct {
	// Policy names the invalidity policy: masked (default) or legacy-clamp.
	Policy string `json:"policy,omitempty"`
}

// OutputData holds configuration for the product writers
type OutputData struct {
	Directory string `json:"directory"`
	// RasterFormat selects the duration raster codec: geotiff (default)
	// or bil.
	RasterFormat string `json:"raster_format,omitempty"`
	// Visualization enables the crest-palette PNG quick look.
	Visualization bool `json:"visualization,omitempty"`
}

// CatalogData holds configuration for the run catalog database
type CatalogData struct {
	// Path of the SQLite catalog file. Empty disables cataloging.
	Path string `json:"path,omitempty"`
}

// ServerData holds configuration for the HTTP API server
type ServerData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
	// RescanInterval is a Go duration string; non-empty enables the
	// periodic recompute loop.
	RescanInterval string `json:"rescan_interval,omitempty"`
}

// DefaultDateLayout is the filename date convention (2021_03_14.tif).
const DefaultDateLayout = "2006_01_02"

// DefaultExtensions are the raster extensions scanned when the input
// section does not name any.
var DefaultExtensions = []string{".tif", ".tiff", ".bil"}

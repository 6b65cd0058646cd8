package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Input   InputYAML   `yaml:"input"`
		Compute ComputeYAML `yaml:"compute,omitempty"`
		Output  OutputYAML  `yaml:"output"`
		Catalog CatalogYAML `yaml:"catalog,omitempty"`
		Server  *ServerYAML `yaml:"server,omitempty"`
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Input: InputData{
			Directory:  yamlConfig.Input.Directory,
			DateLayout: yamlConfig.Input.DateLayout,
			Extensions: yamlConfig.Input.Extensions,
		},
		Compute: ComputeData{
			Policy: yamlConfig.Compute.Policy,
		},
		Output: OutputData{
			Directory:     yamlConfig.Output.Directory,
			RasterFormat:  yamlConfig.Output.RasterFormat,
			Visualization: yamlConfig.Output.Visualization,
		},
		Catalog: CatalogData{
			Path: yamlConfig.Catalog.Path,
		},
	}

	if yamlConfig.Server != nil {
		config.Server = &ServerData{
			ListenAddr:     yamlConfig.Server.ListenAddr,
			Port:           yamlConfig.Server.Port,
			RescanInterval: yamlConfig.Server.RescanInterval,
		}
	}

	y.config = config
	return config, nil
}

// GetInputConfig returns the input section
func (y *YAMLProvider) GetInputConfig() (*InputData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Input, nil
}

// GetComputeConfig returns the compute section
func (y *YAMLProvider) GetComputeConfig() (*ComputeData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Compute, nil
}

// GetOutputConfig returns the output section
func (y *YAMLProvider) GetOutputConfig() (*OutputData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Output, nil
}

// GetCatalogConfig returns the catalog section
func (y *YAMLProvider) GetCatalogConfig() (*CatalogData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Catalog, nil
}

// GetServerConfig returns the server section
func (y *YAMLProvider) GetServerConfig() (*ServerData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Server, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags for parsing the file format
type InputYAML struct {
	Directory  string   `yaml:"directory"`
	DateLayout string   `yaml:"date-layout,omitempty"`
	Extensions []string `yaml:"extensions,omitempty"`
}

type ComputeYAML struct {
	Policy string `yaml:"policy,omitempty"`
}

type OutputYAML struct {
	Directory     string `yaml:"directory"`
	RasterFormat  string `yaml:"raster-format,omitempty"`
	Visualization bool   `yaml:"visualization,omitempty"`
}

type CatalogYAML struct {
	Path string `yaml:"path,omitempty"`
}

type ServerYAML struct {
	ListenAddr     string `yaml:"listen-addr,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	RescanInterval string `yaml:"rescan-interval,omitempty"`
}

package storage

import (
	"fmt"
)

// ProviderLocal is the local filesystem backend.
const ProviderLocal = "local"

// Default configuration values.
const (
	DefaultProvider = ProviderLocal
	DefaultBasePath = "./out/metadata"
)

// Config holds the metadata export sink configuration.
type Config struct {
	// Enabled controls whether metadata documents are exported.
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// Provider selects the storage backend.
	Provider string `mapstructure:"provider" json:"provider"`

	// BasePath is the root directory for the local backend.
	BasePath string `mapstructure:"base_path" json:"base_path"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
}

// Validate checks that the configuration is valid for the selected provider.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Provider {
	case ProviderLocal:
		if c.BasePath == "" {
			return fmt.Errorf("storage: base_path is required for local provider")
		}
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
	return nil
}

package acquire

import (
	"github.com/hazyhaar/licfetch/acquire/internal/catalog"
	"github.com/hazyhaar/licfetch/acquire/internal/config"
	"github.com/hazyhaar/licfetch/acquire/internal/portal"
)

// Config is the top-level licfetch configuration. Re-exported from internal.
type Config = config.Config

// PortalConfig addresses the portal and its fixed controls.
type PortalConfig = config.PortalConfig

// PathsConfig locates the download and output directories.
type PathsConfig = config.PathsConfig

// TimingConfig holds every wait and settle delay.
type TimingConfig = config.TimingConfig

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// Locators address the portal controls outside the document catalog.
type Locators = portal.Locators

// DocumentType is one document catalog entry.
type DocumentType = catalog.DocumentType

// Driver is the browser capability set the pipeline drives.
type Driver = portal.Driver

// Element is a located UI control.
type Element = portal.Element

// LoadConfigFile reads and validates a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// ReadConfigFile reads a YAML configuration file without validating it.
// Call Validate after applying overrides.
func ReadConfigFile(path string) (*Config, error) {
	return config.ReadFile(path)
}

// DefaultConfig returns the configuration for the Fortaleza portal.
func DefaultConfig() *Config {
	return config.Default()
}

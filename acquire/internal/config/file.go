// Package config handles licfetch configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/licfetch/acquire/internal/catalog"
	"github.com/hazyhaar/licfetch/acquire/internal/portal"
	"github.com/hazyhaar/licfetch/horosafe"
)

// DefaultPortalURL is the Fortaleza transparency portal.
const DefaultPortalURL = "https://portal.seuma.fortaleza.ce.gov.br/fortalezaonline/portal/portaltransparencia.jsf"

// Config is the top-level licfetch configuration.
type Config struct {
	Portal    PortalConfig           `yaml:"portal"`
	Documents []catalog.DocumentType `yaml:"documents"`
	Paths     PathsConfig            `yaml:"paths"`
	Timing    TimingConfig           `yaml:"timing"`
	Browser   BrowserConfig          `yaml:"browser"`
	Entities  []string               `yaml:"entities"`
}

// PortalConfig addresses the portal and its fixed controls.
type PortalConfig struct {
	URL      string          `yaml:"url"`
	Locators portal.Locators `yaml:"locators"`
}

// PathsConfig locates the download and output directories.
type PathsConfig struct {
	DownloadDir     string   `yaml:"download_dir"`
	OutputDir       string   `yaml:"output_dir"`
	PartialSuffixes []string `yaml:"partial_suffixes"`
}

// TimingConfig holds every wait and settle delay.
type TimingConfig struct {
	WaitTimeout     time.Duration `yaml:"wait_timeout"`
	ShortWait       time.Duration `yaml:"short_wait"`
	NavigationDelay time.Duration `yaml:"navigation_delay"`
	PageLoadDelay   time.Duration `yaml:"page_load_delay"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	StabilityDelay  time.Duration `yaml:"stability_delay"`
	LaunchBackoff   time.Duration `yaml:"launch_backoff"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	Mode             string   `yaml:"mode"` // headless | headful
	XvfbDisplay      string   `yaml:"xvfb_display"`
	ResourceBlocking []string `yaml:"resource_blocking"`
	LaunchAttempts   int      `yaml:"launch_attempts"`
}

// Default returns the configuration for the Fortaleza portal.
func Default() *Config {
	c := &Config{
		Timing: TimingConfig{
			NavigationDelay: 2 * time.Second,
			PageLoadDelay:   20 * time.Second,
		},
	}
	c.applyDefaults()
	return c
}

// LoadFile reads a YAML configuration file over the defaults and validates it.
func LoadFile(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ReadFile reads a YAML configuration file over the defaults without
// validating it, so callers can apply overrides first. Keys present in the
// file win over defaults, including an explicit 0s settle delay.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// SetDirs overrides the download and output directories. Empty values keep
// the current setting.
func (c *Config) SetDirs(downloadDir, outputDir string) {
	if downloadDir != "" {
		c.Paths.DownloadDir = expandHome(downloadDir)
	}
	if outputDir != "" {
		c.Paths.OutputDir = expandHome(outputDir)
	}
}

// applyDefaults fills settings that have no meaningful zero value. The settle
// delays are not among them: zero disables a delay.
func (c *Config) applyDefaults() {
	if c.Portal.URL == "" {
		c.Portal.URL = DefaultPortalURL
	}
	def := portal.DefaultLocators()
	loc := &c.Portal.Locators
	if loc.EnterpriseSection == "" {
		loc.EnterpriseSection = def.EnterpriseSection
	}
	if loc.SearchField == "" {
		loc.SearchField = def.SearchField
	}
	if loc.SearchSubmit == "" {
		loc.SearchSubmit = def.SearchSubmit
	}
	if loc.DetailsRow == "" {
		loc.DetailsRow = def.DetailsRow
	}
	if loc.CloseDetails == "" {
		loc.CloseDetails = def.CloseDetails
	}
	if len(c.Documents) == 0 {
		c.Documents = catalog.DefaultTypes()
	}

	if c.Paths.DownloadDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Paths.DownloadDir = filepath.Join(home, "Downloads")
		} else {
			c.Paths.DownloadDir = "downloads"
		}
	}
	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = "empresas"
	}
	c.SetDirs(c.Paths.DownloadDir, c.Paths.OutputDir)

	t := &c.Timing
	if t.WaitTimeout <= 0 {
		t.WaitTimeout = 10 * time.Second
	}
	if t.ShortWait <= 0 {
		t.ShortWait = 5 * time.Second
	}
	if t.DownloadTimeout <= 0 {
		t.DownloadTimeout = 60 * time.Second
	}
	if t.PollInterval <= 0 {
		t.PollInterval = time.Second
	}
	if t.StabilityDelay <= 0 {
		t.StabilityDelay = time.Second
	}
	if t.LaunchBackoff <= 0 {
		t.LaunchBackoff = 2 * time.Second
	}

	if c.Browser.Mode == "" {
		c.Browser.Mode = "headful"
	}
	if c.Browser.LaunchAttempts <= 0 {
		c.Browser.LaunchAttempts = 3
	}
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if err := horosafe.ValidateHTTPURL(c.Portal.URL); err != nil {
		return fmt.Errorf("portal.url: %w", err)
	}
	if c.Paths.DownloadDir == "" || c.Paths.OutputDir == "" {
		return fmt.Errorf("paths.download_dir and paths.output_dir are required")
	}
	if samePath(c.Paths.DownloadDir, c.Paths.OutputDir) {
		return fmt.Errorf("paths.output_dir must differ from paths.download_dir")
	}
	if c.Timing.NavigationDelay < 0 || c.Timing.PageLoadDelay < 0 {
		return fmt.Errorf("timing.navigation_delay and timing.page_load_delay must not be negative")
	}
	if c.Timing.ShortWait > c.Timing.WaitTimeout {
		return fmt.Errorf("timing.short_wait (%s) must not exceed timing.wait_timeout (%s)",
			c.Timing.ShortWait, c.Timing.WaitTimeout)
	}
	switch c.Browser.Mode {
	case "headless", "headful":
	default:
		return fmt.Errorf("browser.mode must be headless or headful, got %q", c.Browser.Mode)
	}
	if c.Browser.LaunchAttempts < 1 {
		return fmt.Errorf("browser.launch_attempts must be at least 1, got %d", c.Browser.LaunchAttempts)
	}
	if _, err := catalog.New(c.Documents); err != nil {
		return fmt.Errorf("documents: %w", err)
	}
	for i, id := range c.Entities {
		if err := horosafe.ValidateEntityID(id); err != nil {
			return fmt.Errorf("entities[%d]: %w", i, err)
		}
	}
	return nil
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}

func samePath(a, b string) bool {
	aa, errA := filepath.Abs(a)
	bb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return aa == bb
}

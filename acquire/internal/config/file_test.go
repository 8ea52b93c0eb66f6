package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/licfetch/acquire/internal/catalog"
	"github.com/hazyhaar/licfetch/acquire/internal/portal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "licfetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultPortalURL, cfg.Portal.URL)
	assert.Equal(t, portal.DefaultLocators(), cfg.Portal.Locators)
	assert.Equal(t, catalog.DefaultTypes(), cfg.Documents)
	assert.Equal(t, "empresas", cfg.Paths.OutputDir)
	assert.Equal(t, 10*time.Second, cfg.Timing.WaitTimeout)
	assert.Equal(t, 5*time.Second, cfg.Timing.ShortWait)
	assert.Equal(t, 2*time.Second, cfg.Timing.NavigationDelay)
	assert.Equal(t, 20*time.Second, cfg.Timing.PageLoadDelay)
	assert.Equal(t, 60*time.Second, cfg.Timing.DownloadTimeout)
	assert.Equal(t, time.Second, cfg.Timing.PollInterval)
	assert.Equal(t, time.Second, cfg.Timing.StabilityDelay)
	assert.Equal(t, 2*time.Second, cfg.Timing.LaunchBackoff)
	assert.Equal(t, "headful", cfg.Browser.Mode)
	assert.Equal(t, 3, cfg.Browser.LaunchAttempts)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
portal:
  locators:
    details_row: '//tr[@data-ri="0"]'
paths:
  download_dir: /tmp/licfetch/downloads
  output_dir: /tmp/licfetch/empresas
timing:
  page_load_delay: 8s
  download_timeout: 2m
browser:
  mode: headless
  resource_blocking: [images, fonts]
documents:
  - id: sanitary_license
    select: '//li[5]'
    download: '//button[@id="dl"]'
    prefix: licenca_sanitaria
entities:
  - "07556271000177"
  - "12345678000100"
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, `//tr[@data-ri="0"]`, cfg.Portal.Locators.DetailsRow)
	assert.Equal(t, portal.DefaultLocators().SearchField, cfg.Portal.Locators.SearchField)
	assert.Equal(t, "/tmp/licfetch/downloads", cfg.Paths.DownloadDir)
	assert.Equal(t, 8*time.Second, cfg.Timing.PageLoadDelay)
	assert.Equal(t, 2*time.Minute, cfg.Timing.DownloadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Timing.WaitTimeout)
	assert.Equal(t, "headless", cfg.Browser.Mode)
	assert.Equal(t, []string{"images", "fonts"}, cfg.Browser.ResourceBlocking)
	require.Len(t, cfg.Documents, 1)
	assert.Equal(t, catalog.SanitaryLicense, cfg.Documents[0].ID)
	assert.Equal(t, []string{"07556271000177", "12345678000100"}, cfg.Entities)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "portal: [unclosed"},
		{"bad scheme", "portal:\n  url: ftp://portal.example\n"},
		{"same dirs", "paths:\n  download_dir: /tmp/x\n  output_dir: /tmp/x\n"},
		{"short wait too long", "timing:\n  wait_timeout: 2s\n  short_wait: 5s\n"},
		{"bad mode", "browser:\n  mode: kiosk\n"},
		{"unknown document", "documents:\n  - id: habite_se\n    select: //a\n    download: //b\n    prefix: habite\n"},
		{"bad entity", "entities: [\"07.556.271/0001-77\"]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadFile_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadFile(writeConfig(t, "paths:\n  download_dir: ~/Downloads\n  output_dir: /tmp/licfetch/out\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Downloads"), cfg.Paths.DownloadDir)
	assert.Equal(t, "/tmp/licfetch/out", cfg.Paths.OutputDir)
}

func TestLoadFile_LaunchRetry(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "timing:\n  launch_backoff: 500ms\nbrowser:\n  launch_attempts: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.Timing.LaunchBackoff)
	assert.Equal(t, 5, cfg.Browser.LaunchAttempts)
}

func TestLoadFile_ZeroSettleDelays(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "timing:\n  navigation_delay: 0s\n  page_load_delay: 0s\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Timing.NavigationDelay)
	assert.Zero(t, cfg.Timing.PageLoadDelay)
	assert.Equal(t, 10*time.Second, cfg.Timing.WaitTimeout)

	// Absent keys keep their defaults.
	cfg, err = LoadFile(writeConfig(t, "timing:\n  wait_timeout: 12s\n"))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Timing.NavigationDelay)
	assert.Equal(t, 20*time.Second, cfg.Timing.PageLoadDelay)
}

func TestLoadFile_NegativeDelayRejected(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "timing:\n  navigation_delay: -1s\n"))
	require.Error(t, err)
}

func TestReadFile_OverridesBeforeValidate(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, "paths:\n  download_dir: /tmp/licfetch/same\n  output_dir: /tmp/licfetch/same\n")

	_, err := LoadFile(path)
	require.Error(t, err)

	cfg, err := ReadFile(path)
	require.NoError(t, err)
	cfg.SetDirs("~/dl", "")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join(home, "dl"), cfg.Paths.DownloadDir)
	assert.Equal(t, "/tmp/licfetch/same", cfg.Paths.OutputDir)
}

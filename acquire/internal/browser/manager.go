// Package browser launches Chrome through Rod, points its downloads at the
// pipeline's download directory, and exposes the single page as a
// portal.Driver.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/licfetch/acquire/internal/portal"
)

// Mode controls how Chrome is run.
type Mode int

const (
	ModeHeadless Mode = iota // Rod headless + stealth
	ModeHeadful              // Rod headful, optionally under Xvfb
)

func (m Mode) String() string {
	if m == ModeHeadful {
		return "headful"
	}
	return "headless"
}

// ParseMode maps a config string to a Mode. Unknown values are headless.
func ParseMode(s string) Mode {
	if s == "headful" {
		return ModeHeadful
	}
	return ModeHeadless
}

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// DownloadDir receives every file the page downloads. Required.
	DownloadDir string

	Mode Mode

	// XvfbDisplay starts an Xvfb display for headful mode. Empty = use the
	// caller's DISPLAY.
	XvfbDisplay string

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns one Chrome process and one page for the duration of a run.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	router  *rod.HijackRouter
	xvfb    *exec.Cmd
	closed  bool
}

// NewManager creates a browser Manager. Call Open to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Open launches Chrome (or connects to a remote instance), routes downloads
// to DownloadDir, and returns a Driver bound to a fresh page. Closing the
// Driver shuts the browser down.
func (m *Manager) Open(ctx context.Context) (portal.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return nil, fmt.Errorf("browser: already open")
	}

	dir, err := filepath.Abs(m.cfg.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("browser: download dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("browser: download dir: %w", err)
	}

	b, err := m.launch(ctx)
	if err != nil {
		m.cleanup()
		return nil, err
	}
	m.browser = b

	err = proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath:  dir,
		EventsEnabled: true,
	}.Call(b)
	if err != nil {
		m.cleanup()
		return nil, fmt.Errorf("browser: set download behavior: %w", err)
	}

	page, err := m.newPage(b)
	if err != nil {
		m.cleanup()
		return nil, err
	}

	m.cfg.Logger.Info("browser: ready", "mode", m.cfg.Mode, "download_dir", dir)
	return &Driver{page: page, mgr: m}, nil
}

// Close shuts down Chrome and Xvfb. Safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	if m.cfg.Mode == ModeHeadful && m.cfg.XvfbDisplay != "" {
		if err := m.startXvfb(ctx); err != nil {
			return nil, fmt.Errorf("browser: xvfb: %w", err)
		}
	}

	var wsURL string

	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx)

		if m.cfg.Mode == ModeHeadful {
			l = l.Headless(false)
			if m.cfg.XvfbDisplay != "" {
				l = l.Env(append(os.Environ(), "DISPLAY="+m.cfg.XvfbDisplay)...)
			}
		} else {
			l = l.Headless(true)
		}

		// Anti-detection flags.
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "mode", m.cfg.Mode)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, nil
}

func (m *Manager) newPage(b *rod.Browser) (*rod.Page, error) {
	var page *rod.Page
	var err error

	if m.cfg.Mode == ModeHeadless {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	if len(m.cfg.ResourceBlocking) > 0 {
		blocked, err := blockedTypes(m.cfg.ResourceBlocking)
		if err == nil {
			m.router, err = blockResources(page, blocked)
		}
		if err != nil {
			m.cfg.Logger.Warn("browser: resource blocking disabled", "error", err)
		}
	}
	return page, nil
}

func (m *Manager) cleanup() error {
	if m.router != nil {
		if err := m.router.Stop(); err != nil {
			m.cfg.Logger.Debug("browser: stop request router", "error", err)
		}
		m.router = nil
	}
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.cfg.Logger.Warn("browser: close", "error", err)
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.stopXvfb()
	return nil
}

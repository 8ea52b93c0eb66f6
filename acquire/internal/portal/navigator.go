// Package portal drives the transparency portal's enterprise search UI
// through a Driver: open the enterprise section, search a tax id, open the
// details dialog, select and download each document type, close the dialog.
package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/licfetch/acquire/internal/catalog"
	"github.com/hazyhaar/licfetch/acquire/internal/clock"
)

var (
	// ErrNavigation is returned when a navigation control cannot be reached.
	ErrNavigation = errors.New("portal: navigation failed")
	// ErrSearch is returned when the search form cannot be driven.
	ErrSearch = errors.New("portal: search failed")
	// ErrDocumentUnavailable means the entity has no such document on the
	// portal. It is an expected outcome.
	ErrDocumentUnavailable = errors.New("portal: document unavailable")
	// ErrInvalidState is returned when an operation is called out of order.
	ErrInvalidState = errors.New("portal: invalid state for operation")
)

// State is the navigator's position in the portal flow.
type State int

const (
	Home State = iota
	EnterpriseSectionOpen
	SearchSubmitted
	DetailsOpen
	DetailsNotFound
	DocumentSelected
	DownloadTriggered
	DetailsClosed
)

func (s State) String() string {
	switch s {
	case Home:
		return "home"
	case EnterpriseSectionOpen:
		return "enterprise_section_open"
	case SearchSubmitted:
		return "search_submitted"
	case DetailsOpen:
		return "details_open"
	case DetailsNotFound:
		return "details_not_found"
	case DocumentSelected:
		return "document_selected"
	case DownloadTriggered:
		return "download_triggered"
	case DetailsClosed:
		return "details_closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Locators address the portal controls outside the document catalog.
type Locators struct {
	EnterpriseSection string `yaml:"enterprise_section"`
	SearchField       string `yaml:"search_field"`
	SearchSubmit      string `yaml:"search_submit"`
	DetailsRow        string `yaml:"details_row"`
	CloseDetails      string `yaml:"close_details"`
}

// DefaultLocators returns the portal's current XPaths.
func DefaultLocators() Locators {
	return Locators{
		EnterpriseSection: `//*[@id="tvTransparencia"]/ul/li[2]/a`,
		SearchField:       `//*[@id="tvTransparencia:formPortalTransparenciaEmpresa:cnpjEstabelecimento"]`,
		SearchSubmit:      `//*[@id="tvTransparencia:formPortalTransparenciaEmpresa:btnLocalizarPesquisarEmpresas"]`,
		DetailsRow:        `//*[@id="tvTransparencia:formPortalTransparenciaEmpresa:dtListaEmpresas:0:row2"]`,
		CloseDetails:      `//*[@id="formDetalhePortalTransparencia:dlgDetalhesPortalTransparencia"]/div[1]/a`,
	}
}

// Config configures a Navigator.
type Config struct {
	URL      string
	Locators Locators
	Catalog  *catalog.Catalog

	// WaitTimeout bounds every locator wait. Default: 10s.
	WaitTimeout time.Duration
	// ShortWait bounds the details-row lookup, whose absence is expected. Default: 5s.
	ShortWait time.Duration
	// NavigationDelay is the settle delay after page loads and search
	// submits. Zero disables it.
	NavigationDelay time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 10 * time.Second
	}
	if c.ShortWait <= 0 {
		c.ShortWait = 5 * time.Second
	}
	if c.Catalog == nil {
		c.Catalog = catalog.Default()
	}
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Navigator is the portal state machine. Not safe for concurrent use.
type Navigator struct {
	drv   Driver
	cfg   Config
	state State
}

// New creates a Navigator in the Home state.
func New(drv Driver, cfg Config) *Navigator {
	cfg.defaults()
	return &Navigator{drv: drv, cfg: cfg, state: Home}
}

// State returns the current state.
func (n *Navigator) State() State { return n.state }

// NavigateToEnterpriseSection loads the portal and opens the enterprise tab.
func (n *Navigator) NavigateToEnterpriseSection(ctx context.Context) error {
	if n.state != Home {
		return n.invalid("navigate to enterprise section")
	}
	log := n.cfg.Logger

	if err := n.drv.Navigate(ctx, n.cfg.URL); err != nil {
		return fmt.Errorf("%w: load %s: %w", ErrNavigation, n.cfg.URL, err)
	}
	if title, err := n.drv.Title(ctx); err == nil {
		log.Info("portal: page loaded", "url", n.cfg.URL, "title", title)
	}
	if err := n.cfg.Clock.Sleep(ctx, n.cfg.NavigationDelay); err != nil {
		return err
	}

	btn, err := n.drv.Find(ctx, n.cfg.Locators.EnterpriseSection, n.cfg.WaitTimeout)
	if err != nil {
		return fmt.Errorf("%w: enterprise section: %w", ErrNavigation, err)
	}
	if err := btn.Click(ctx); err != nil {
		return fmt.Errorf("%w: enterprise section click: %w", ErrNavigation, err)
	}

	n.state = EnterpriseSectionOpen
	log.Info("portal: enterprise section opened")
	return nil
}

// SearchByEntity submits the enterprise search for id.
func (n *Navigator) SearchByEntity(ctx context.Context, id string) error {
	if n.state == Home {
		return n.invalid("search")
	}
	wait := n.cfg.WaitTimeout

	field, err := n.drv.Find(ctx, n.cfg.Locators.SearchField, wait)
	if err != nil {
		return fmt.Errorf("%w: search field: %w", ErrSearch, err)
	}
	if err := field.Clear(ctx); err != nil {
		return fmt.Errorf("%w: clear search field: %w", ErrSearch, err)
	}
	if err := field.Type(ctx, id); err != nil {
		return fmt.Errorf("%w: type entity: %w", ErrSearch, err)
	}

	submit, err := n.drv.Find(ctx, n.cfg.Locators.SearchSubmit, wait)
	if err != nil {
		return fmt.Errorf("%w: search button: %w", ErrSearch, err)
	}
	if err := submit.ScrollIntoView(ctx); err != nil {
		return fmt.Errorf("%w: scroll search button: %w", ErrSearch, err)
	}
	if err := submit.WaitEnabled(ctx, wait); err != nil {
		return fmt.Errorf("%w: search button disabled: %w", ErrSearch, err)
	}
	if err := submit.Click(ctx); err != nil {
		return fmt.Errorf("%w: search click: %w", ErrSearch, err)
	}

	n.state = SearchSubmitted
	n.cfg.Logger.Info("portal: search submitted", "entity", id)
	return n.cfg.Clock.Sleep(ctx, n.cfg.NavigationDelay)
}

// OpenEnterpriseDetails clicks the first result row. It returns false when
// no row appears within the short wait; the caller should skip the entity.
func (n *Navigator) OpenEnterpriseDetails(ctx context.Context) bool {
	if n.state != SearchSubmitted {
		n.cfg.Logger.Warn("portal: open details out of order", "state", n.state)
		return false
	}
	row, err := n.drv.Find(ctx, n.cfg.Locators.DetailsRow, n.cfg.ShortWait)
	if err == nil {
		err = row.Click(ctx)
	}
	if err != nil {
		n.state = DetailsNotFound
		n.cfg.Logger.Debug("portal: details row not found", "error", err)
		return false
	}
	n.state = DetailsOpen
	return true
}

// SelectAndTriggerDownload selects docType in the details dialog and clicks
// its download control. It returns the document's file prefix. An error
// wrapping ErrDocumentUnavailable means the entity has no such document.
func (n *Navigator) SelectAndTriggerDownload(ctx context.Context, docType string) (string, error) {
	switch n.state {
	case DetailsOpen, DocumentSelected, DownloadTriggered:
	default:
		return "", n.invalid("select document")
	}
	dt, err := n.cfg.Catalog.Lookup(docType)
	if err != nil {
		return "", err
	}
	log := n.cfg.Logger.With("document", dt.ID)

	tab, err := n.drv.Find(ctx, dt.Select, n.cfg.WaitTimeout)
	if err == nil {
		err = tab.Click(ctx)
	}
	if err != nil {
		log.Warn("portal: document selector not found", "error", err)
		return "", fmt.Errorf("%w: %s: select: %w", ErrDocumentUnavailable, dt.ID, err)
	}
	n.state = DocumentSelected
	log.Debug("portal: document selected")

	btn, err := n.drv.Find(ctx, dt.Download, n.cfg.WaitTimeout)
	if err == nil {
		err = btn.Click(ctx)
	}
	if err != nil {
		log.Warn("portal: download control not found", "error", err)
		return "", fmt.Errorf("%w: %s: download: %w", ErrDocumentUnavailable, dt.ID, err)
	}
	n.state = DownloadTriggered
	log.Info("portal: download triggered")
	return dt.Prefix, nil
}

// CloseDetails closes the details dialog so the next search starts clean.
func (n *Navigator) CloseDetails(ctx context.Context) error {
	switch n.state {
	case DetailsOpen, DocumentSelected, DownloadTriggered:
	default:
		return n.invalid("close details")
	}
	btn, err := n.drv.Find(ctx, n.cfg.Locators.CloseDetails, n.cfg.WaitTimeout)
	if err != nil {
		return fmt.Errorf("%w: close details: %w", ErrNavigation, err)
	}
	if err := btn.Click(ctx); err != nil {
		return fmt.Errorf("%w: close details click: %w", ErrNavigation, err)
	}
	n.state = DetailsClosed
	n.cfg.Logger.Info("portal: details closed")
	return nil
}

func (n *Navigator) invalid(op string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidState, op, n.state)
}

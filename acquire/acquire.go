// Package acquire retrieves business-license documents for a list of tax
// identifiers from the transparency portal and files each download under
// <output>/<entity>/<entity>_<prefix><ext>.
//
// A run is strictly sequential: one browser, one page, one entity and one
// document at a time. Failures local to a document never abort its entity,
// and failures local to an entity never abort the run.
//
// The browser's download directory must be quiesced before a run. Files
// already present are ignored, but a download that outlives its wait can
// be attributed to the next document of the same entity.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/hazyhaar/licfetch/acquire/internal/browser"
	"github.com/hazyhaar/licfetch/acquire/internal/catalog"
	"github.com/hazyhaar/licfetch/acquire/internal/clock"
	"github.com/hazyhaar/licfetch/acquire/internal/download"
	"github.com/hazyhaar/licfetch/acquire/internal/inspect"
	"github.com/hazyhaar/licfetch/acquire/internal/organize"
	"github.com/hazyhaar/licfetch/acquire/internal/portal"
	"github.com/hazyhaar/licfetch/horosafe"
	"github.com/hazyhaar/licfetch/idgen"
)

// Launcher acquires the browser automation handle for a run. The handle's
// Close releases it.
type Launcher interface {
	Open(ctx context.Context) (Driver, error)
}

// Clock is the time source for settle delays and download polling.
type Clock = clock.Clock

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithLauncher replaces the Rod browser launcher.
func WithLauncher(l Launcher) Option {
	return func(a *Acquirer) { a.launcher = l }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(a *Acquirer) { a.clock = c }
}

// WithRunID sets the run id generator.
func WithRunID(gen idgen.Generator) Option {
	return func(a *Acquirer) { a.newRunID = gen }
}

// Acquirer runs the acquisition pipeline.
type Acquirer struct {
	cfg       *Config
	catalog   *catalog.Catalog
	launcher  Launcher
	clock     Clock
	newRunID  idgen.Generator
	watcher   *download.Watcher
	organizer *organize.Organizer
	logger    *slog.Logger
}

// New creates an Acquirer from a validated configuration.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Acquirer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("acquire: config: %w", err)
	}
	cat, err := catalog.New(cfg.Documents)
	if err != nil {
		return nil, fmt.Errorf("acquire: %w", err)
	}

	a := &Acquirer{
		cfg:      cfg,
		catalog:  cat,
		clock:    clock.Real{},
		newRunID: idgen.RunID,
		logger:   logger,
	}
	for _, o := range opts {
		o(a)
	}

	a.watcher = download.New(download.Options{
		Dir:             cfg.Paths.DownloadDir,
		PollInterval:    cfg.Timing.PollInterval,
		StabilityDelay:  cfg.Timing.StabilityDelay,
		PartialSuffixes: cfg.Paths.PartialSuffixes,
		Clock:           a.clock,
		Logger:          logger,
	})
	a.organizer = organize.New(cfg.Paths.DownloadDir, cfg.Paths.OutputDir, logger)
	return a, nil
}

// Run processes entities in order. The browser is opened once per Run and
// always released before Run returns, so an Acquirer may Run again. The
// returned report covers every entity attempted, also when Run returns an
// error.
func (a *Acquirer) Run(ctx context.Context, entities []string) (*Report, error) {
	rep := &Report{RunID: a.newRunID(), StartedAt: a.clock.Now()}
	log := a.logger.With("run_id", rep.RunID)

	err := a.run(ctx, entities, rep, log)
	rep.FinishedAt = a.clock.Now()

	sum := rep.Summary()
	log.Info("acquire: run finished",
		"entities", sum.Entities, "done", sum.Done, "not_found", sum.NotFound,
		"failed", sum.Failed, "invalid", sum.Invalid, "artifacts", sum.Artifacts,
		"duration", rep.FinishedAt.Sub(rep.StartedAt))
	return rep, err
}

func (a *Acquirer) run(ctx context.Context, entities []string, rep *Report, log *slog.Logger) error {
	for _, dir := range []string{a.cfg.Paths.DownloadDir, a.cfg.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("acquire: create %s: %w", dir, err)
		}
	}
	a.warnStaleDownloads(log)

	drv, err := a.openBrowser(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := drv.Close(); err != nil {
			log.Warn("acquire: browser release failed", "error", err)
		}
	}()

	nav := portal.New(drv, portal.Config{
		URL:             a.cfg.Portal.URL,
		Locators:        a.cfg.Portal.Locators,
		Catalog:         a.catalog,
		WaitTimeout:     a.cfg.Timing.WaitTimeout,
		ShortWait:       a.cfg.Timing.ShortWait,
		NavigationDelay: a.cfg.Timing.NavigationDelay,
		Clock:           a.clock,
		Logger:          log,
	})
	if err := nav.NavigateToEnterpriseSection(ctx); err != nil {
		return fmt.Errorf("acquire: %w", err)
	}

	log.Info("acquire: run started", "entities", len(entities), "documents", a.catalog.Len())
	for _, id := range entities {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep.Entities = append(rep.Entities, a.processEntity(ctx, nav, id, log))
	}
	return ctx.Err()
}

// processEntity runs one entity and absorbs its failures into the report.
func (a *Acquirer) processEntity(ctx context.Context, nav *portal.Navigator, id string, log *slog.Logger) EntityReport {
	er := EntityReport{ID: id}
	log = log.With("entity", id)

	if err := horosafe.ValidateEntityID(id); err != nil {
		er.Status = EntityInvalid
		er.Error = err.Error()
		log.Warn("acquire: invalid entity id, skipping", "error", err)
		return er
	}

	if err := a.acquireEntity(ctx, nav, &er, log); err != nil {
		er.Status = EntityFailed
		er.Error = err.Error()
		log.Error("acquire: entity failed", "error", err)
	}
	return er
}

func (a *Acquirer) acquireEntity(ctx context.Context, nav *portal.Navigator, er *EntityReport, log *slog.Logger) error {
	before, err := a.watcher.Snapshot()
	if err != nil {
		return err
	}

	if err := nav.SearchByEntity(ctx, er.ID); err != nil {
		return err
	}
	if !nav.OpenEnterpriseDetails(ctx) {
		er.Status = EntityNotFound
		er.Error = ErrEntityDetailsNotFound.Error()
		log.Info("acquire: details not found, skipping entity")
		return nil
	}
	if err := a.clock.Sleep(ctx, a.cfg.Timing.PageLoadDelay); err != nil {
		return err
	}

	var docErr error
	for _, dt := range a.catalog.Types() {
		dr, err := a.acquireDocument(ctx, nav, er.ID, dt, before, log.With("document", dt.ID))
		er.Documents = append(er.Documents, dr)
		if err != nil {
			docErr = err
			break
		}
	}

	// The dialog is closed even after a failed document so the next
	// search starts from a clean page.
	if err := errors.Join(docErr, nav.CloseDetails(ctx)); err != nil {
		return err
	}
	er.Status = EntityDone
	if err := a.clock.Sleep(ctx, a.cfg.Timing.NavigationDelay); err != nil {
		log.Debug("acquire: settle delay interrupted", "error", err)
	}
	return nil
}

// acquireDocument triggers, awaits and files one document. Expected
// failures are recorded in the returned report; a non-nil error means the
// entity cannot continue.
func (a *Acquirer) acquireDocument(ctx context.Context, nav *portal.Navigator, entity string, dt catalog.DocumentType, before download.Snapshot, log *slog.Logger) (DocumentReport, error) {
	dr := DocumentReport{Type: dt.ID}

	prefix, err := nav.SelectAndTriggerDownload(ctx, dt.ID)
	if err != nil {
		if !errors.Is(err, ErrDocumentUnavailable) {
			dr.Status = DocumentDownloadFailed
			dr.Error = err.Error()
			return dr, err
		}
		dr.Status = DocumentUnavailable
		log.Info("acquire: document unavailable")
		return dr, nil
	}

	name, err := a.watcher.AwaitCompletedDownload(ctx, before, a.cfg.Timing.DownloadTimeout)
	if err != nil {
		dr.Status = DocumentDownloadFailed
		dr.Error = err.Error()
		if ctx.Err() != nil {
			return dr, ctx.Err()
		}
		if errors.Is(err, ErrDownloadTimeout) {
			dr.Status = DocumentDownloadTimeout
		}
		log.Error("acquire: download failed", "error", err)
		return dr, nil
	}
	dr.File = name

	path, err := a.organizer.Place(entity, name, prefix)
	if err != nil {
		// Keep the stray file from being credited to a later document.
		before.Add(name)
		dr.Status = DocumentOrganizeFailed
		dr.Error = err.Error()
		log.Error("acquire: organize failed", "file", name, "error", err)
		return dr, nil
	}
	dr.Path = path
	dr.Status = DocumentSaved

	if inspect.Applies(path) {
		res, err := inspect.Inspect(path)
		if err != nil {
			dr.Warning = err.Error()
			log.Warn("acquire: artifact failed inspection", "path", path, "error", err)
		} else {
			dr.Pages = res.Pages
		}
	}
	log.Info("acquire: document saved", "path", path, "pages", dr.Pages)
	return dr, nil
}

// runLauncher returns the injected launcher, or a fresh browser manager so
// that each Run owns its own Chrome process.
func (a *Acquirer) runLauncher() Launcher {
	if a.launcher != nil {
		return a.launcher
	}
	return browser.NewManager(browser.Config{
		RemoteURL:        a.cfg.Browser.Remote,
		DownloadDir:      a.cfg.Paths.DownloadDir,
		Mode:             browser.ParseMode(a.cfg.Browser.Mode),
		XvfbDisplay:      a.cfg.Browser.XvfbDisplay,
		ResourceBlocking: a.cfg.Browser.ResourceBlocking,
		Logger:           a.logger,
	})
}

// openBrowser retries the launcher with exponential backoff, up to
// Browser.LaunchAttempts tries in total.
func (a *Acquirer) openBrowser(ctx context.Context, log *slog.Logger) (Driver, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = a.cfg.Timing.LaunchBackoff
	expBackoff.MaxElapsedTime = 0
	retries := uint64(a.cfg.Browser.LaunchAttempts - 1)
	b := backoff.WithContext(backoff.WithMaxRetries(expBackoff, retries), ctx)

	launcher := a.runLauncher()
	var drv Driver
	operation := func() error {
		var err error
		drv, err = launcher.Open(ctx)
		return err
	}
	notify := func(err error, next time.Duration) {
		log.Warn("acquire: browser open failed, retrying", "error", err, "retry_in", next)
	}
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, fmt.Errorf("acquire: open browser: %w", err)
	}
	return drv, nil
}

func (a *Acquirer) warnStaleDownloads(log *slog.Logger) {
	snap, err := a.watcher.Snapshot()
	if err != nil {
		log.Warn("acquire: cannot list download dir", "error", err)
		return
	}
	if len(snap) > 0 {
		log.Warn("acquire: download dir is not empty; pre-existing files are ignored",
			"dir", a.watcher.Dir(), "files", snap.Names())
	}
}

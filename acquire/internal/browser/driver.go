package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/licfetch/acquire/internal/portal"
)

// navigateTimeout bounds the initial page load.
const navigateTimeout = 30 * time.Second

// Driver adapts a Rod page to portal.Driver. Locators are XPath expressions.
type Driver struct {
	page *rod.Page
	mgr  *Manager
}

var _ portal.Driver = (*Driver)(nil)

// Navigate loads url and waits for the load event.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, navigateTimeout)
	defer cancel()

	p := d.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		d.mgr.cfg.Logger.Warn("browser: wait load timeout", "url", url, "error", err)
	}
	return nil
}

// Title returns the document title.
func (d *Driver) Title(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("browser: page info: %w", err)
	}
	return info.Title, nil
}

// Find waits up to timeout for the XPath locator to match.
func (d *Driver) Find(ctx context.Context, locator string, timeout time.Duration) (portal.Element, error) {
	findCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := d.page.Context(findCtx).ElementX(locator)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("browser: %s after %s: %w", locator, timeout, portal.ErrNotFound)
		}
		return nil, fmt.Errorf("browser: locate %s: %w", locator, err)
	}
	return &element{el: el.Context(ctx)}, nil
}

// Close shuts down the browser that owns this page.
func (d *Driver) Close() error {
	return d.mgr.Close()
}

type element struct {
	el *rod.Element
}

func (e *element) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

// Clear empties an input. Input events fire on the following Type.
func (e *element) Clear(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => { this.value = '' }`)
	return err
}

func (e *element) Type(ctx context.Context, text string) error {
	return e.el.Context(ctx).Input(text)
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => this.scrollIntoView(true)`)
	return err
}

func (e *element) WaitEnabled(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.el.Context(waitCtx).WaitEnabled()
}

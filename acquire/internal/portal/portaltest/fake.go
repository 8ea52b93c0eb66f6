// Package portaltest provides an in-memory portal.Driver for tests.
package portaltest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hazyhaar/licfetch/acquire/internal/portal"
)

// Driver is a scripted fake. Locators are present only once added; clicks
// can trigger hooks that mutate the page or the filesystem.
type Driver struct {
	mu       sync.Mutex
	present  map[string]bool
	disabled map[string]bool
	onClick  map[string]func()
	calls    []string
	typed    string
	closed   bool

	// NavigateErr, when set, is returned by Navigate.
	NavigateErr error
	PageTitle   string
}

// New returns a Driver with the given locators present.
func New(locators ...string) *Driver {
	d := &Driver{
		present:   make(map[string]bool),
		disabled:  make(map[string]bool),
		onClick:   make(map[string]func()),
		PageTitle: "Portal da Transparência",
	}
	for _, l := range locators {
		d.present[l] = true
	}
	return d
}

// Add makes locators present.
func (d *Driver) Add(locators ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range locators {
		d.present[l] = true
	}
}

// Remove makes locators absent.
func (d *Driver) Remove(locators ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range locators {
		delete(d.present, l)
	}
}

// Disable makes WaitEnabled fail for locator.
func (d *Driver) Disable(locator string) {
	d.mu.Lock()
	d.disabled[locator] = true
	d.mu.Unlock()
}

// OnClick registers fn to run after locator is clicked.
func (d *Driver) OnClick(locator string, fn func()) {
	d.mu.Lock()
	d.onClick[locator] = fn
	d.mu.Unlock()
}

// Typed returns the last text typed into any element.
func (d *Driver) Typed() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.typed
}

// Calls returns the recorded call log ("find <loc>", "click <loc>", ...).
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

// Count returns how many recorded calls equal call.
func (d *Driver) Count(call string) int {
	n := 0
	for _, c := range d.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// Closed reports whether Close was called.
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Driver) record(call string) {
	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()
}

// Navigate implements portal.Driver.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.record("navigate " + url)
	return d.NavigateErr
}

// Title implements portal.Driver.
func (d *Driver) Title(ctx context.Context) (string, error) {
	return d.PageTitle, nil
}

// Find implements portal.Driver.
func (d *Driver) Find(ctx context.Context, locator string, timeout time.Duration) (portal.Element, error) {
	d.record("find " + locator)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	ok := d.present[locator]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("fake: %s after %s: %w", locator, timeout, portal.ErrNotFound)
	}
	return &element{d: d, locator: locator}, nil
}

// Close implements portal.Driver.
func (d *Driver) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

type element struct {
	d       *Driver
	locator string
}

func (e *element) Click(ctx context.Context) error {
	e.d.record("click " + e.locator)
	e.d.mu.Lock()
	fn := e.d.onClick[e.locator]
	e.d.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	e.d.record("clear " + e.locator)
	return nil
}

func (e *element) Type(ctx context.Context, text string) error {
	e.d.record("type " + e.locator + " " + text)
	e.d.mu.Lock()
	e.d.typed = text
	e.d.mu.Unlock()
	return nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	e.d.record("scroll " + e.locator)
	return nil
}

func (e *element) WaitEnabled(ctx context.Context, timeout time.Duration) error {
	e.d.record("wait-enabled " + e.locator)
	e.d.mu.Lock()
	disabled := e.d.disabled[e.locator]
	e.d.mu.Unlock()
	if disabled {
		return fmt.Errorf("fake: %s still disabled after %s", e.locator, timeout)
	}
	return nil
}

package portal

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Driver.Find when the locator matches nothing
// before the timeout. Drivers wrap it with their own context.
var ErrNotFound = errors.New("portal: element not found")

// Driver is the capability set the navigator needs from a browser
// automation handle. Implementations own one page for the whole run.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	// Find waits up to timeout for locator to match an element.
	Find(ctx context.Context, locator string, timeout time.Duration) (Element, error)
	Close() error
}

// Element is a located UI control.
type Element interface {
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	Type(ctx context.Context, text string) error
	ScrollIntoView(ctx context.Context) error
	// WaitEnabled waits up to timeout for the control to become interactive.
	WaitEnabled(ctx context.Context, timeout time.Duration) error
}

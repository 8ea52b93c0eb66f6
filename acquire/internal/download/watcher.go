// Package download detects when the browser has finished writing a file
// into the shared download directory.
//
// The browser exposes no completion event to the automation handle, so the
// watcher infers it: a file that was not in the pre-trigger snapshot and whose
// size is identical and non-zero across two samples is complete. The
// download directory must be quiesced before a run; stale files that predate
// the snapshot are ignored, but a download that finishes late can still be
// picked up by the next wait.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hazyhaar/licfetch/acquire/internal/clock"
)

// ErrDownloadTimeout is returned when no completed file appears in time.
var ErrDownloadTimeout = errors.New("download: timed out waiting for a completed file")

// Snapshot is the set of file names present in the download directory
// before a download is triggered.
type Snapshot map[string]struct{}

// Has reports whether name was present.
func (s Snapshot) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Add records name as pre-existing.
func (s Snapshot) Add(name string) { s[name] = struct{}{} }

// Names returns the snapshot's entries sorted.
func (s Snapshot) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Options tunes the watcher behaviour.
type Options struct {
	// Dir is the browser's download directory.
	Dir string
	// PollInterval separates directory listings. Default: 1s.
	PollInterval time.Duration
	// StabilityDelay separates the two size samples of a candidate. Default: 1s.
	StabilityDelay time.Duration
	// PartialSuffixes mark files the browser is still streaming into.
	// Default: .crdownload, .part, .tmp.
	PartialSuffixes []string
	Clock           clock.Clock
	Logger          *slog.Logger
}

func (o *Options) defaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.StabilityDelay <= 0 {
		o.StabilityDelay = time.Second
	}
	if o.PartialSuffixes == nil {
		o.PartialSuffixes = []string{".crdownload", ".part", ".tmp"}
	}
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher polls one download directory. It is not safe for concurrent use;
// the pipeline only ever runs one wait at a time.
type Watcher struct {
	opts Options
}

// New creates a Watcher.
func New(opts Options) *Watcher {
	opts.defaults()
	return &Watcher{opts: opts}
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.opts.Dir }

// Snapshot lists the download directory.
func (w *Watcher) Snapshot() (Snapshot, error) {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("download: snapshot %s: %w", w.opts.Dir, err)
	}
	s := make(Snapshot, len(entries))
	for _, e := range entries {
		s.Add(e.Name())
	}
	return s, nil
}

// AwaitCompletedDownload blocks until a file absent from before has a stable,
// non-zero size, and returns its name. It fails with ErrDownloadTimeout once
// timeout has elapsed on the watcher's clock.
func (w *Watcher) AwaitCompletedDownload(ctx context.Context, before Snapshot, timeout time.Duration) (string, error) {
	clk := w.opts.Clock
	deadline := clk.Now().Add(timeout)

	for clk.Now().Before(deadline) {
		candidates, err := w.candidates(before)
		if err != nil {
			return "", err
		}
		for _, name := range candidates {
			ok, err := w.stable(ctx, name)
			if err != nil {
				return "", err
			}
			if ok {
				w.opts.Logger.Debug("download: completed", "file", name)
				return name, nil
			}
		}
		if err := clk.Sleep(ctx, w.opts.PollInterval); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w after %s", ErrDownloadTimeout, timeout)
}

// candidates lists regular files not in before, skipping partial downloads.
func (w *Watcher) candidates(before Snapshot) ([]string, error) {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("download: list %s: %w", w.opts.Dir, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || before.Has(name) || w.isPartial(name) {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// stable samples the size of name twice, StabilityDelay apart.
// A file that disappears between samples is not stable.
func (w *Watcher) stable(ctx context.Context, name string) (bool, error) {
	path := filepath.Join(w.opts.Dir, name)
	first, err := os.Stat(path)
	if err != nil {
		return false, nil
	}
	if err := w.opts.Clock.Sleep(ctx, w.opts.StabilityDelay); err != nil {
		return false, err
	}
	second, err := os.Stat(path)
	if err != nil {
		return false, nil
	}
	if !second.Mode().IsRegular() {
		return false, nil
	}
	return first.Size() == second.Size() && second.Size() > 0, nil
}

func (w *Watcher) isPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, suf := range w.opts.PartialSuffixes {
		if strings.HasSuffix(lower, strings.ToLower(suf)) {
			return true
		}
	}
	return false
}

package download

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/licfetch/acquire/internal/clock"
)

func newTestWatcher(t *testing.T) (*Watcher, *clock.Fake, string) {
	t.Helper()
	dir := t.TempDir()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	w := New(Options{Dir: dir, Clock: clk})
	return w, clk, dir
}

func writeFile(t *testing.T, dir, name string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644))
}

func appendBytes(t *testing.T, dir, name string, n int) {
	t.Helper()
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write(make([]byte, n))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestAwait_PrefersStableOverGrowing(t *testing.T) {
	w, clk, dir := newTestWatcher(t)
	before, err := w.Snapshot()
	require.NoError(t, err)

	writeFile(t, dir, "a_growing.pdf", 10)
	writeFile(t, dir, "b_stable.pdf", 10)
	clk.OnSleep = func(time.Duration) { appendBytes(t, dir, "a_growing.pdf", 5) }

	name, err := w.AwaitCompletedDownload(context.Background(), before, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "b_stable.pdf", name)
}

func TestAwait_NeverReturnsZeroByteFile(t *testing.T) {
	w, _, dir := newTestWatcher(t)
	before, err := w.Snapshot()
	require.NoError(t, err)

	writeFile(t, dir, "placeholder.pdf", 0)

	_, err = w.AwaitCompletedDownload(context.Background(), before, 5*time.Second)
	require.ErrorIs(t, err, ErrDownloadTimeout)
}

func TestAwait_PlaceholderFilledLater(t *testing.T) {
	w, clk, dir := newTestWatcher(t)
	before, err := w.Snapshot()
	require.NoError(t, err)

	writeFile(t, dir, "alvara.pdf", 0)
	sleeps := 0
	clk.OnSleep = func(time.Duration) {
		sleeps++
		if sleeps == 3 {
			writeFile(t, dir, "alvara.pdf", 2048)
		}
	}

	name, err := w.AwaitCompletedDownload(context.Background(), before, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "alvara.pdf", name)
}

func TestAwait_IgnoresSnapshotFiles(t *testing.T) {
	w, _, dir := newTestWatcher(t)
	writeFile(t, dir, "old.pdf", 100)

	before, err := w.Snapshot()
	require.NoError(t, err)
	require.True(t, before.Has("old.pdf"))

	_, err = w.AwaitCompletedDownload(context.Background(), before, 5*time.Second)
	require.ErrorIs(t, err, ErrDownloadTimeout)
}

func TestAwait_TimeoutLeavesDirectoryUntouched(t *testing.T) {
	w, clk, dir := newTestWatcher(t)
	writeFile(t, dir, "old.pdf", 100)
	before, err := w.Snapshot()
	require.NoError(t, err)

	_, err = w.AwaitCompletedDownload(context.Background(), before, 10*time.Second)
	require.ErrorIs(t, err, ErrDownloadTimeout)
	assert.GreaterOrEqual(t, clk.Slept(), 10*time.Second)

	after, err := w.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before.Names(), after.Names())
}

func TestAwait_SkipsPartialDownloads(t *testing.T) {
	w, clk, dir := newTestWatcher(t)
	before, err := w.Snapshot()
	require.NoError(t, err)

	writeFile(t, dir, "doc.pdf.crdownload", 500)
	sleeps := 0
	clk.OnSleep = func(time.Duration) {
		sleeps++
		if sleeps == 4 {
			require.NoError(t, os.Rename(filepath.Join(dir, "doc.pdf.crdownload"), filepath.Join(dir, "doc.pdf")))
		}
	}

	name, err := w.AwaitCompletedDownload(context.Background(), before, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", name)
}

func TestAwait_IgnoresDirectories(t *testing.T) {
	w, _, dir := newTestWatcher(t)
	before, err := w.Snapshot()
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	_, err = w.AwaitCompletedDownload(context.Background(), before, 3*time.Second)
	require.ErrorIs(t, err, ErrDownloadTimeout)
}

func TestAwait_ContextCancelled(t *testing.T) {
	w, _, _ := newTestWatcher(t)
	before, err := w.Snapshot()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = w.AwaitCompletedDownload(ctx, before, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSnapshot_MissingDir(t *testing.T) {
	w := New(Options{Dir: filepath.Join(t.TempDir(), "missing")})
	_, err := w.Snapshot()
	require.Error(t, err)
}

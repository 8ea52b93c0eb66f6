package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectEntities(t *testing.T) {
	got := collectEntities(" 07556271000177, ,12345678000100", []string{"11111111000111", " "})
	assert.Equal(t, []string{"07556271000177", "12345678000100", "11111111000111"}, got)
	assert.Empty(t, collectEntities("", nil))
}

func TestLoadConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "licfetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entities: [\"07556271000177\"]\nbrowser:\n  mode: headful\n"), 0o644))

	cfg, err := loadConfig(options{
		configPath:  path,
		entities:    []string{"12345678000100"},
		downloadDir: filepath.Join(dir, "dl"),
		outputDir:   filepath.Join(dir, "out"),
		mode:        "headless",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"07556271000177", "12345678000100"}, cfg.Entities)
	assert.Equal(t, filepath.Join(dir, "dl"), cfg.Paths.DownloadDir)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Paths.OutputDir)
	assert.Equal(t, "headless", cfg.Browser.Mode)
}

func TestLoadConfig_RejectsBadEntity(t *testing.T) {
	_, err := loadConfig(options{entities: []string{"07.556.271/0001-77"}})
	require.Error(t, err)
}

func TestRun_NoEntities(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var out bytes.Buffer
	err := run(context.Background(), logger, options{}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entities")
	assert.Zero(t, out.Len())
}

func TestLoadConfig_FlagsFixFileDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := t.TempDir()
	path := filepath.Join(dir, "licfetch.yaml")
	same := filepath.Join(dir, "same")
	body := "paths:\n  download_dir: " + same + "\n  output_dir: " + same + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := loadConfig(options{configPath: path})
	require.Error(t, err)

	cfg, err := loadConfig(options{configPath: path, downloadDir: "~/dl"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "dl"), cfg.Paths.DownloadDir)
	assert.Equal(t, same, cfg.Paths.OutputDir)
}

func TestRun_RejectsMalformedRunID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	var out bytes.Buffer
	err := run(context.Background(), logger, options{
		entities:    []string{"07556271000177"},
		downloadDir: filepath.Join(dir, "dl"),
		outputDir:   filepath.Join(dir, "out"),
		runID:       "batch-42",
	}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run id")
	assert.Zero(t, out.Len())
}

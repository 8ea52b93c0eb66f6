// Command licfetch downloads business-license documents from the Fortaleza
// transparency portal for a list of tax identifiers.
//
// Usage:
//
//	licfetch -config licfetch.yaml                 # entities from the config file
//	licfetch -entities 07556271000177,12345678000100
//	licfetch -report run.json 07556271000177       # entities as arguments
//	licfetch -run-id run_0190d3c2-7a2b-7c3d-8e4f-0123456789ab -config licfetch.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hazyhaar/licfetch/acquire"
	"github.com/hazyhaar/licfetch/idgen"
)

func main() {
	configPath := flag.String("config", "", "path to licfetch.yaml config file")
	entityList := flag.String("entities", "", "comma-separated tax ids, appended to the config list")
	downloadDir := flag.String("download-dir", "", "override paths.download_dir")
	outputDir := flag.String("output-dir", "", "override paths.output_dir")
	mode := flag.String("mode", "", "override browser.mode: headless or headful")
	reportPath := flag.String("report", "", "write the JSON run report to this file instead of stdout")
	runID := flag.String("run-id", "", "reuse a run id (run_<uuidv7>) issued by a scheduler")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		configPath:  *configPath,
		entities:    collectEntities(*entityList, flag.Args()),
		downloadDir: *downloadDir,
		outputDir:   *outputDir,
		mode:        *mode,
		reportPath:  *reportPath,
		runID:       *runID,
	}
	if err := run(ctx, logger, opts, os.Stdout); err != nil {
		logger.Error("licfetch: fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	entities    []string
	downloadDir string
	outputDir   string
	mode        string
	reportPath  string
	runID       string
}

func run(ctx context.Context, logger *slog.Logger, opts options, stdout io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if len(cfg.Entities) == 0 {
		return fmt.Errorf("no entities: set entities in the config, -entities, or pass them as arguments")
	}

	var acqOpts []acquire.Option
	if opts.runID != "" {
		if _, err := idgen.ParseRunID(opts.runID); err != nil {
			return err
		}
		acqOpts = append(acqOpts, acquire.WithRunID(idgen.Static(opts.runID)))
	}

	acq, err := acquire.New(cfg, logger, acqOpts...)
	if err != nil {
		return err
	}

	rep, runErr := acq.Run(ctx, cfg.Entities)
	if rep != nil {
		if err := writeReport(rep, opts.reportPath, stdout); err != nil {
			logger.Error("licfetch: write report", "error", err)
		}
	}
	return runErr
}

func loadConfig(opts options) (*acquire.Config, error) {
	cfg := acquire.DefaultConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = acquire.ReadConfigFile(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	cfg.SetDirs(opts.downloadDir, opts.outputDir)
	if opts.mode != "" {
		cfg.Browser.Mode = opts.mode
	}
	cfg.Entities = append(cfg.Entities, opts.entities...)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func collectEntities(list string, args []string) []string {
	var out []string
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	for _, id := range args {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func writeReport(rep *acquire.Report, path string, stdout io.Writer) error {
	if path == "" {
		return rep.WriteJSON(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rep.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

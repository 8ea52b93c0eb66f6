// Package organize files downloaded artifacts into per-entity directories
// under a normalized name: <base>/<entity>/<entity>_<prefix><ext>.
package organize

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hazyhaar/licfetch/horosafe"
)

// ErrOrganize wraps every filesystem failure while placing an artifact.
var ErrOrganize = errors.New("organize: cannot place artifact")

// Organizer moves files out of the download directory.
type Organizer struct {
	downloadDir string
	baseDir     string
	logger      *slog.Logger
}

// New creates an Organizer moving files from downloadDir into baseDir.
func New(downloadDir, baseDir string, logger *slog.Logger) *Organizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Organizer{downloadDir: downloadDir, baseDir: baseDir, logger: logger}
}

// FileName computes the artifact name for entityID. The extension of
// sourceName is kept, leading dot included.
func FileName(entityID, sourceName, prefix string) string {
	ext := filepath.Ext(sourceName)
	if prefix == "" {
		return entityID + ext
	}
	return entityID + "_" + prefix + ext
}

// Place moves sourceName from the download directory to the entity's
// directory and returns the final path. An existing artifact with the same
// name is replaced.
func (o *Organizer) Place(entityID, sourceName, prefix string) (string, error) {
	if err := horosafe.ValidateEntityID(entityID); err != nil {
		return "", fmt.Errorf("%w: %w", ErrOrganize, err)
	}
	src, err := horosafe.SafePath(o.downloadDir, sourceName)
	if err != nil || filepath.Base(sourceName) != sourceName {
		return "", fmt.Errorf("%w: source %q outside download dir", ErrOrganize, sourceName)
	}

	entityDir := filepath.Join(o.baseDir, entityID)
	if err := os.MkdirAll(entityDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", ErrOrganize, entityDir, err)
	}

	dst := filepath.Join(entityDir, FileName(entityID, sourceName, prefix))
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("%w: move %s: %w", ErrOrganize, sourceName, err)
	}

	o.logger.Info("organize: artifact placed", "entity", entityID, "file", sourceName, "path", dst)
	return dst, nil
}

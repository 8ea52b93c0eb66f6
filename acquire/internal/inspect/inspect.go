// Package inspect checks organized artifacts after they are filed. The
// portal occasionally serves an HTML error page under a .pdf name; a
// structural PDF read catches that without trusting the extension.
package inspect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNotPDF is returned when a .pdf artifact does not parse as a PDF.
var ErrNotPDF = errors.New("inspect: artifact is not a valid PDF")

// Result describes an inspected artifact.
type Result struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Pages int    `json:"pages,omitempty"`
}

// Applies reports whether path has an extension Inspect understands.
func Applies(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Inspect stats path and, for PDFs, validates the document and counts pages.
func Inspect(path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("inspect: stat: %w", err)
	}
	res := &Result{Path: path, Size: info.Size()}
	if !Applies(path) {
		return res, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("inspect: open: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrNotPDF, err)
	}
	res.Pages = ctx.PageCount
	return res, nil
}

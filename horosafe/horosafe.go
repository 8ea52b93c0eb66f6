// Package horosafe provides the small set of input guards licfetch applies
// before anything touches the filesystem or the browser: path traversal
// checks, entity id validation, and identifier validation for names that end
// up in file names.
package horosafe

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// MaxIdentifierLen caps identifiers that are used as file-name components.
const MaxIdentifierLen = 128

// ErrPathTraversal is returned when a path component escapes its base.
var ErrPathTraversal = errors.New("horosafe: path traversal detected")

// ErrInvalidEntityID is returned when an entity id is not a digit string.
var ErrInvalidEntityID = errors.New("horosafe: entity id must be a non-empty digit string")

// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme.
var ErrUnsafeScheme = errors.New("horosafe: only http and https schemes are allowed")

// SafePath joins base and name and verifies the result stays under base.
// Returns the cleaned path or ErrPathTraversal.
func SafePath(base, name string) (string, error) {
	if name == "" || strings.Contains(name, "..") {
		return "", ErrPathTraversal
	}
	cleanBase := filepath.Clean(base)
	joined := filepath.Join(cleanBase, filepath.Clean(string(filepath.Separator)+name))
	if !strings.HasPrefix(joined, cleanBase+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return joined, nil
}

// ValidateEntityID accepts tax identifiers: one or more ASCII digits.
func ValidateEntityID(id string) error {
	if id == "" || len(id) > MaxIdentifierLen {
		return ErrInvalidEntityID
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: unexpected %q in %q", ErrInvalidEntityID, r, id)
		}
	}
	return nil
}

// ValidateIdentifier rejects identifiers that contain characters unsuitable
// for file names. Allows alphanumeric, underscore, hyphen, and dot.
func ValidateIdentifier(s string) error {
	if s == "" {
		return fmt.Errorf("horosafe: identifier must not be empty")
	}
	if len(s) > MaxIdentifierLen {
		return fmt.Errorf("horosafe: identifier too long (max %d)", MaxIdentifierLen)
	}
	if s == "." || s == ".." {
		return fmt.Errorf("horosafe: invalid identifier %q", s)
	}
	for _, r := range s {
		if !isIdentChar(r) {
			return fmt.Errorf("horosafe: invalid character %q in identifier", r)
		}
	}
	return nil
}

// ValidateHTTPURL checks that rawURL parses, uses http or https, and has a host.
func ValidateHTTPURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("horosafe: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeScheme
	}
	if u.Hostname() == "" {
		return fmt.Errorf("horosafe: URL has no host")
	}
	return nil
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}

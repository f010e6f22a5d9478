// Package files validates paths of file inputs against the configured
// base directory.
package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideBase is returned for paths that escape the base directory.
	ErrOutsideBase = errors.New("path is outside the configured directory")
	// ErrTooLarge is returned for files above the size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrUnsupported is returned for files with an unexpected extension.
	ErrUnsupported = errors.New("unsupported file type")
)

// Validator resolves user supplied paths inside a base directory.
type Validator struct {
	base        string
	maxFileSize int64
}

// NewValidator creates a validator rooted at base. A maxFileSize of zero or
// less disables the size check.
func NewValidator(base string, maxFileSize int64) (*Validator, error) {
	if base == "" {
		return nil, fmt.Errorf("base directory cannot be empty")
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	return &Validator{base: abs, maxFileSize: maxFileSize}, nil
}

// Base returns the absolute base directory.
func (v *Validator) Base() string {
	return v.base
}

// MaxFileSize returns the size limit in bytes.
func (v *Validator) MaxFileSize() int64 {
	return v.maxFileSize
}

// Resolve turns path into an absolute path to an existing regular file
// under the base directory. Relative paths are taken from the base. When
// exts is non-empty the file must carry one of them.
func (v *Validator) Resolve(path string, exts ...string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.base, path)
	}
	clean := filepath.Clean(path)

	if !v.within(clean) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBase, path)
	}
	// A symlink inside the base may still point elsewhere.
	if real, err := filepath.EvalSymlinks(clean); err == nil && !v.within(real) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBase, path)
	}

	info, err := os.Stat(clean)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if len(exts) > 0 && !hasExt(clean, exts) {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(clean))
	}
	if v.maxFileSize > 0 && info.Size() > v.maxFileSize {
		return "", fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrTooLarge, info.Size(), v.maxFileSize)
	}
	return clean, nil
}

// ReadFile resolves path and returns its contents.
func (v *Validator) ReadFile(path string, exts ...string) ([]byte, error) {
	resolved, err := v.Resolve(path, exts...)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (v *Validator) within(path string) bool {
	bases := []string{v.base}
	if real, err := filepath.EvalSymlinks(v.base); err == nil && real != v.base {
		bases = append(bases, real)
	}
	for _, b := range bases {
		if path == b || strings.HasPrefix(path, b+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

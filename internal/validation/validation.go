// Package validation checks paths and files given on the command line
// before they are read or written.
package validation

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// Limits on command-line inputs.
const (
	// MaxImportSize bounds a corpus source file. A full Tanzil text is
	// under 2 MB; translations with commentary stay well below this.
	MaxImportSize = 64 << 20
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrFileTooLarge     = errors.New("file too large")
	ErrNotRegular       = errors.New("not a regular file")
)

// ValidatePath checks a path for length limits and control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ReadFileLimited reads a regular file of at most limit bytes.
func ReadFileLimited(path string, limit int64) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, path, info.Size(), limit)
	}

	// The size can change between Stat and Read.
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, path, limit)
	}
	return data, nil
}

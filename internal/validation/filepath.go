package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const maxPathLength = 4096

var ErrUnsafePath = errors.New("unsafe path")

// StateFile checks a configured state file location and returns it expanded
// and absolute. Traversal components, control characters and existing
// directories are rejected; a missing file is fine.
func StateFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: path cannot be empty", ErrUnsafePath)
	}
	if len(path) > maxPathLength {
		return "", fmt.Errorf("%w: path longer than %d characters", ErrUnsafePath, maxPathLength)
	}
	if strings.ContainsFunc(path, func(r rune) bool { return unicode.IsControl(r) && r != '\t' }) {
		return "", fmt.Errorf("%w: path contains control characters", ErrUnsafePath)
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: directory traversal not allowed", ErrUnsafePath)
		}
	}

	expanded, err := ExpandPath(path)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(expanded); err == nil && info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrUnsafePath, expanded)
	}
	return expanded, nil
}

// ExpandPath replaces a leading ~/ with the home directory and returns the
// cleaned absolute path. An empty path stays empty.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot make path absolute: %w", err)
	}
	return abs, nil
}

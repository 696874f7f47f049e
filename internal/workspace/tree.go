// Package workspace provides the file tree abstraction the gradle injectors
// operate on. Paths are slash-separated and relative to the workspace root.
//
// Three implementations exist:
//   - OSTree reads and writes a directory on disk
//   - MemTree keeps everything in memory (tests, previews)
//   - StagedTree buffers writes over another tree until Commit
package workspace

import (
	"errors"
	"io/fs"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNotExist is returned (wrapped) by Read when a path is absent.
var ErrNotExist = fs.ErrNotExist

// ErrInvalidPath is returned for absolute paths or paths escaping the root.
var ErrInvalidPath = errors.New("invalid workspace path")

// Tree is the collaborator surface consumed by the gradle package.
type Tree interface {
	// Glob returns the files matching any of the doublestar patterns.
	Glob(patterns ...string) ([]string, error)

	// Exists reports whether a file exists at path.
	Exists(path string) bool

	// Read returns the full content of a file.
	Read(path string) (string, error)

	// Write replaces the content of a file, creating it if necessary.
	Write(path, content string) error
}

// DefaultExclude lists directory names never descended into while globbing.
var DefaultExclude = []string{"node_modules", ".git", ".gradle", "build", ".nxgradle"}

// CleanPath normalizes a tree path and rejects anything outside the root.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", ErrInvalidPath
	}
	return p, nil
}

// matchAny reports whether rel matches at least one pattern.
func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// validatePatterns fails fast on malformed glob patterns.
func validatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return &PatternError{Pattern: pattern}
		}
	}
	return nil
}

// excluded reports whether any directory segment of rel is in the exclude set.
func excluded(exclude map[string]bool, rel string) bool {
	if len(exclude) == 0 {
		return false
	}
	segments := strings.Split(rel, "/")
	for _, seg := range segments[:len(segments)-1] {
		if exclude[seg] {
			return true
		}
	}
	return false
}

func excludeSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			set[name] = true
		}
	}
	return set
}

// PatternError reports a glob pattern doublestar cannot parse.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid glob pattern: " + e.Pattern
}

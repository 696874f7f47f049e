package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// OSTree is a Tree rooted at a directory on disk.
type OSTree struct {
	root    string
	exclude map[string]bool
}

// NewOSTree creates a tree rooted at dir. Directories whose name appears in
// exclude are skipped while globbing; nil means DefaultExclude.
func NewOSTree(dir string, exclude []string) (*OSTree, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", abs)
	}
	if exclude == nil {
		exclude = DefaultExclude
	}
	return &OSTree{root: abs, exclude: excludeSet(exclude)}, nil
}

// Root returns the absolute workspace directory.
func (t *OSTree) Root() string {
	return t.root
}

// Abs converts a tree path to an absolute filesystem path.
func (t *OSTree) Abs(p string) string {
	return filepath.Join(t.root, filepath.FromSlash(p))
}

// Glob walks the workspace once in lexical order and returns every file
// matching one of the patterns.
func (t *OSTree) Glob(patterns ...string) ([]string, error) {
	if err := validatePatterns(patterns); err != nil {
		return nil, err
	}

	var out []string
	err := fs.WalkDir(os.DirFS(t.root), ".", func(rel string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable subtrees are skipped; an unreadable root is fatal.
			if rel == "." {
				return walkErr
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if rel != "." && t.exclude[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if matchAny(patterns, rel) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace %s: %w", t.root, err)
	}
	return out, nil
}

// Exists reports whether a regular file exists at p.
func (t *OSTree) Exists(p string) bool {
	clean, err := CleanPath(p)
	if err != nil {
		return false
	}
	info, err := os.Stat(t.Abs(clean))
	return err == nil && !info.IsDir()
}

// Read returns the content of p.
func (t *OSTree) Read(p string) (string, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	data, err := os.ReadFile(t.Abs(clean))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", clean, err)
	}
	return string(data), nil
}

// Write replaces p atomically: content goes to a temp file in the same
// directory which is then renamed over the target.
func (t *OSTree) Write(p, content string) error {
	clean, err := CleanPath(p)
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	target := t.Abs(clean)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("write %s: %w", clean, err)
	}

	mode := fs.FileMode(0644)
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("write %s: %w", clean, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", clean, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", clean, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", clean, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", clean, err)
	}
	return nil
}

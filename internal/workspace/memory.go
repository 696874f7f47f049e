package workspace

import (
	"fmt"
	"sort"
	"sync"
)

// MemTree is an in-memory Tree.
type MemTree struct {
	mu      sync.RWMutex
	files   map[string]string
	exclude map[string]bool
}

// NewMemTree creates a tree seeded with files (path -> content).
func NewMemTree(files map[string]string) *MemTree {
	t := &MemTree{
		files:   make(map[string]string, len(files)),
		exclude: excludeSet(DefaultExclude),
	}
	for p, content := range files {
		if clean, err := CleanPath(p); err == nil {
			t.files[clean] = content
		}
	}
	return t
}

// Glob returns matching files sorted lexically.
func (t *MemTree) Glob(patterns ...string) ([]string, error) {
	if err := validatePatterns(patterns); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for p := range t.files {
		if excluded(t.exclude, p) {
			continue
		}
		if matchAny(patterns, p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (t *MemTree) Exists(p string) bool {
	clean, err := CleanPath(p)
	if err != nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.files[clean]
	return ok
}

func (t *MemTree) Read(p string) (string, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	content, ok := t.files[clean]
	if !ok {
		return "", fmt.Errorf("read %s: %w", clean, ErrNotExist)
	}
	return content, nil
}

func (t *MemTree) Write(p, content string) error {
	clean, err := CleanPath(p)
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files[clean] = content
	return nil
}

// Files returns a copy of the tree contents.
func (t *MemTree) Files() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.files))
	for p, content := range t.files {
		out[p] = content
	}
	return out
}

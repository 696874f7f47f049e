package workspace

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Change describes one staged file relative to the backing tree.
type Change struct {
	Path    string
	Before  string
	After   string
	Created bool
}

// StagedTree buffers writes in memory on top of a backing tree. Reads see
// staged content first. Nothing reaches the backing tree until Commit, so a
// run computes every file completely before the first write.
type StagedTree struct {
	base Tree

	mu     sync.Mutex
	staged map[string]string
	order  []string
}

// NewStagedTree wraps base.
func NewStagedTree(base Tree) *StagedTree {
	return &StagedTree{
		base:   base,
		staged: make(map[string]string),
	}
}

// Base returns the backing tree.
func (s *StagedTree) Base() Tree {
	return s.base
}

// Glob merges staged files into the backing tree's matches.
func (s *StagedTree) Glob(patterns ...string) ([]string, error) {
	matches, err := s.base.Glob(patterns...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		seen[m] = true
	}
	added := false
	for _, p := range s.order {
		if !seen[p] && matchAny(patterns, p) {
			matches = append(matches, p)
			seen[p] = true
			added = true
		}
	}
	if added {
		sort.Strings(matches)
	}
	return matches, nil
}

func (s *StagedTree) Exists(p string) bool {
	clean, err := CleanPath(p)
	if err != nil {
		return false
	}
	s.mu.Lock()
	_, ok := s.staged[clean]
	s.mu.Unlock()
	return ok || s.base.Exists(clean)
}

func (s *StagedTree) Read(p string) (string, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	s.mu.Lock()
	content, ok := s.staged[clean]
	s.mu.Unlock()
	if ok {
		return content, nil
	}
	return s.base.Read(clean)
}

// Write stages content for p.
func (s *StagedTree) Write(p, content string) error {
	clean, err := CleanPath(p)
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.staged[clean]; !ok {
		s.order = append(s.order, clean)
	}
	s.staged[clean] = content
	return nil
}

// Changes lists staged files that differ from the backing tree, in the order
// they were first written. New files are always changes, even when empty.
func (s *StagedTree) Changes() ([]Change, error) {
	s.mu.Lock()
	order := append([]string(nil), s.order...)
	staged := make(map[string]string, len(s.staged))
	for p, c := range s.staged {
		staged[p] = c
	}
	s.mu.Unlock()

	var changes []Change
	for _, p := range order {
		after := staged[p]
		if !s.base.Exists(p) {
			changes = append(changes, Change{Path: p, After: after, Created: true})
			continue
		}
		before, err := s.base.Read(p)
		if err != nil {
			return nil, err
		}
		if before != after {
			changes = append(changes, Change{Path: p, Before: before, After: after})
		}
	}
	return changes, nil
}

// Commit writes every change to the backing tree and clears the stage.
// It stops at the first failing write; files already written stay written.
// The returned slice lists the paths written before any failure.
func (s *StagedTree) Commit() ([]string, error) {
	changes, err := s.Changes()
	if err != nil {
		return nil, err
	}

	var written []string
	for _, c := range changes {
		if err := s.base.Write(c.Path, c.After); err != nil {
			return written, errors.Join(ErrCommitAborted, err)
		}
		written = append(written, c.Path)
	}
	s.Discard()
	return written, nil
}

// Discard drops everything staged.
func (s *StagedTree) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = make(map[string]string)
	s.order = nil
}

// ErrCommitAborted wraps the write error that stopped a Commit.
var ErrCommitAborted = errors.New("commit aborted")

package setup

import (
	"time"

	"nxgradle/internal/diff"
	"nxgradle/internal/gradle"
)

// Report is the outcome of one run.
type Report struct {
	RunID           string
	Workspace       string
	ExpectedVersion string
	SettingsFiles   []string
	// Files holds one result per settings script, in discovery order.
	Files      []gradle.FileResult
	Advisories []gradle.Advisory
	// Written lists the paths flushed to disk; empty on a dry run.
	Written  []string
	DryRun   bool
	Duration time.Duration
}

// Changes returns the results whose content changed, in discovery order.
func (r *Report) Changes() []gradle.FileResult {
	var out []gradle.FileResult
	for _, f := range r.Files {
		if f.Changed() {
			out = append(out, f)
		}
	}
	return out
}

// HasChanges reports whether any file would be or was changed.
func (r *Report) HasChanges() bool {
	for _, f := range r.Files {
		if f.Changed() {
			return true
		}
	}
	return false
}

// Created returns the paths of build files that did not exist before.
func (r *Report) Created() []string {
	var out []string
	for _, f := range r.Files {
		if f.Created {
			out = append(out, f.Path)
		}
	}
	return out
}

// Diffs renders a diff per changed file.
func (r *Report) Diffs() []*diff.FileDiff {
	var out []*diff.FileDiff
	for _, f := range r.Changes() {
		out = append(out, diff.Compute(f.Path, f.Before, f.After, f.Created))
	}
	return out
}

package ui

import (
	"fmt"
	"io"
	"strings"

	"nxgradle/internal/diff"
	"nxgradle/internal/gradle"
	"nxgradle/internal/setup"
)

// RenderDiff writes a unified diff with added and removed lines colored.
func (s Styles) RenderDiff(w io.Writer, fd *diff.FileDiff) {
	if fd == nil || fd.Empty() {
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(fd.Unified(), "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			fmt.Fprintln(w, s.DiffHeader.Render(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Fprintln(w, s.DiffHunk.Render(line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprintln(w, s.DiffAdded.Render(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprintln(w, s.DiffRemoved.Render(line))
		default:
			fmt.Fprintln(w, line)
		}
	}
}

// RenderAdvisories writes one block per advisory, with the snippet to add
// when there is one.
func (s Styles) RenderAdvisories(w io.Writer, advisories []gradle.Advisory) {
	for _, a := range advisories {
		fmt.Fprintf(w, "%s %s\n", s.Warning.Render("!"), a.Message)
		if a.Snippet != "" && !strings.Contains(a.Message, a.Snippet) {
			fmt.Fprintln(w, s.Snippet.Render(a.Snippet))
		}
	}
}

// RenderReport writes the summary of a run.
func (s Styles) RenderReport(w io.Writer, r *setup.Report) {
	if len(r.SettingsFiles) == 0 {
		fmt.Fprintln(w, s.Muted.Render("No Gradle settings files found in "+r.Workspace))
		return
	}

	changes := r.Changes()
	verb := "updated"
	if r.DryRun {
		verb = "would update"
	}
	for _, f := range changes {
		mark := s.Success.Render("✓")
		note := verb
		if f.Created {
			note = strings.Replace(verb, "update", "create", 1)
		}
		fmt.Fprintf(w, "%s %s %s\n", mark, s.Path.Render(f.Path), s.Muted.Render("("+note+")"))
	}

	if len(r.Advisories) > 0 {
		fmt.Fprintln(w)
		s.RenderAdvisories(w, r.Advisories)
	}

	fmt.Fprintln(w, s.Divider.Render(strings.Repeat("─", 40)))
	summary := s.Body.Render(fmt.Sprintf("%d build file(s), %d %s, %d advisory(ies)",
		len(r.Files), len(changes), verb, len(r.Advisories)))
	switch {
	case r.DryRun:
		fmt.Fprintln(w, s.Info.Render("Dry run: ")+summary)
	case len(changes) == 0 && len(r.Advisories) == 0:
		fmt.Fprintln(w, s.Success.Render("Up to date: ")+summary)
	default:
		fmt.Fprintln(w, s.Badge.Render(gradle.PluginID+" "+r.ExpectedVersion+": ")+summary)
	}
}

// RenderStatus writes a table with one row per build file.
func (s Styles) RenderStatus(w io.Writer, rows []setup.FileStatus) {
	if len(rows) == 0 {
		fmt.Fprintln(w, s.Muted.Render("No Gradle settings files found"))
		return
	}

	width := len("BUILD FILE")
	for _, r := range rows {
		if len(r.Path) > width {
			width = len(r.Path)
		}
	}

	header := fmt.Sprintf("%-*s  %-8s  %-26s  %-20s  %s", width, "BUILD FILE", "VERSION", "PLUGIN", "APPLY", "STATE")
	fmt.Fprintln(w, s.Bold.Render(header))
	for _, r := range rows {
		version := r.Version
		if version == "" {
			version = "-"
		}
		state := s.Success.Render("ok")
		switch {
		case !r.Exists:
			state = s.Warning.Render("missing")
		case r.WouldChange:
			state = s.Warning.Render("pending")
		case len(r.Advisories) > 0:
			state = s.Error.Render("manual")
		}
		fmt.Fprintf(w, "%-*s  %-8s  %-26s  %-20s  %s\n",
			width, r.Path, version, r.PluginState, r.ApplyState, state)
	}
}

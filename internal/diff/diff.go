// Package diff renders line diffs of build file edits using the sergi/go-diff
// library. Used by dry runs and the check command to preview changes.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines shown around a change.
const DefaultContext = 3

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// Line represents a single line in the diff. LineNum is the new-file line
// for additions and the old-file line otherwise.
type Line struct {
	LineNum int
	Content string
	Type    LineType
	// NoEOL marks the last line of a file without a trailing newline.
	NoEOL bool
}

// Hunk represents a group of changes
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FileDiff represents changes to a single file
type FileDiff struct {
	Path  string
	IsNew bool
	Hunks []Hunk
}

// Engine computes line diffs.
type Engine struct {
	dmp     *diffmatchpatch.DiffMatchPatch
	context int
}

// NewEngine creates a diff engine showing context unchanged lines around
// each change. A negative context means DefaultContext.
func NewEngine(context int) *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // build files are small; prefer minimal diffs
	if context < 0 {
		context = DefaultContext
	}
	return &Engine{dmp: dmp, context: context}
}

// DefaultEngine is a shared engine with DefaultContext.
var DefaultEngine = NewEngine(DefaultContext)

// Compute diffs before and after for path. isNew renders the old side as
// /dev/null.
func (e *Engine) Compute(path, before, after string, isNew bool) *FileDiff {
	fd := &FileDiff{Path: path, IsNew: isNew}
	if before == after {
		return fd
	}
	fd.Hunks = e.group(e.lineOps(before, after))
	return fd
}

// Compute is a convenience function using the default engine
func Compute(path, before, after string, isNew bool) *FileDiff {
	return DefaultEngine.Compute(path, before, after, isNew)
}

type op struct {
	typ       LineType
	oldBefore int // old lines consumed before this op
	newBefore int
	text      string
	noEOL     bool
}

// lineOps runs the diff at line granularity so no change ever splits a line.
func (e *Engine) lineOps(before, after string) []op {
	a, b, lines := e.dmp.DiffLinesToChars(before, after)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCleanupSemantic(diffs)
	diffs = e.dmp.DiffCharsToLines(diffs, lines)

	var ops []op
	oldN, newN := 0, 0
	for _, d := range diffs {
		for _, l := range splitLines(d.Text) {
			o := op{oldBefore: oldN, newBefore: newN, text: strings.TrimSuffix(l, "\n"), noEOL: !strings.HasSuffix(l, "\n")}
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				o.typ = LineContext
				oldN++
				newN++
			case diffmatchpatch.DiffDelete:
				o.typ = LineRemoved
				oldN++
			case diffmatchpatch.DiffInsert:
				o.typ = LineAdded
				newN++
			}
			ops = append(ops, o)
		}
	}
	return ops
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// group collects changes into hunks; changes separated by at most twice the
// context share a hunk.
func (e *Engine) group(ops []op) []Hunk {
	var hunks []Hunk
	for i := 0; i < len(ops); {
		if ops[i].typ == LineContext {
			i++
			continue
		}
		start := max(0, i-e.context)
		end := i
		for j := i; j < len(ops); j++ {
			if ops[j].typ != LineContext {
				end = j
				continue
			}
			if j-end > 2*e.context {
				break
			}
		}
		stop := min(len(ops), end+e.context+1)
		hunks = append(hunks, newHunk(ops[start:stop]))
		i = stop
	}
	return hunks
}

func newHunk(ops []op) Hunk {
	h := Hunk{Lines: make([]Line, 0, len(ops))}
	for _, o := range ops {
		num := o.oldBefore + 1
		if o.typ == LineAdded {
			num = o.newBefore + 1
		}
		if o.typ != LineAdded {
			h.OldCount++
		}
		if o.typ != LineRemoved {
			h.NewCount++
		}
		h.Lines = append(h.Lines, Line{LineNum: num, Content: o.text, Type: o.typ, NoEOL: o.noEOL})
	}
	h.OldStart = ops[0].oldBefore
	if h.OldCount > 0 {
		h.OldStart++
	}
	h.NewStart = ops[0].newBefore
	if h.NewCount > 0 {
		h.NewStart++
	}
	return h
}

// Empty reports whether there is nothing to show.
func (fd *FileDiff) Empty() bool {
	return len(fd.Hunks) == 0
}

// Stats counts added and removed lines.
func (fd *FileDiff) Stats() (added, removed int) {
	for _, h := range fd.Hunks {
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				added++
			case LineRemoved:
				removed++
			}
		}
	}
	return added, removed
}

// Header returns the "@@ -a,b +c,d @@" line of a hunk.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
}

// Unified renders the diff in unified format. An empty diff renders as "".
func (fd *FileDiff) Unified() string {
	if fd.Empty() {
		return ""
	}
	var b strings.Builder
	if fd.IsNew {
		b.WriteString("--- /dev/null\n")
	} else {
		fmt.Fprintf(&b, "--- a/%s\n", fd.Path)
	}
	fmt.Fprintf(&b, "+++ b/%s\n", fd.Path)
	for _, h := range fd.Hunks {
		b.WriteString(h.Header())
		b.WriteByte('\n')
		for _, l := range h.Lines {
			b.WriteString(l.Prefix())
			b.WriteString(l.Content)
			b.WriteByte('\n')
			if l.NoEOL {
				b.WriteString("\\ No newline at end of file\n")
			}
		}
	}
	return b.String()
}

// Prefix returns the unified-format marker for the line type.
func (l Line) Prefix() string {
	switch l.Type {
	case LineAdded:
		return "+"
	case LineRemoved:
		return "-"
	default:
		return " "
	}
}

package gradle

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// ApplyState classifies a build file before the allprojects step.
type ApplyState int

const (
	AllProjectsMissing ApplyState = iota
	DirectiveMissing
	DirectivePresent
)

func (s ApplyState) String() string {
	switch s {
	case AllProjectsMissing:
		return "allprojects-missing"
	case DirectiveMissing:
		return "directive-missing"
	case DirectivePresent:
		return "directive-present"
	default:
		return fmt.Sprintf("ApplyState(%d)", int(s))
	}
}

var allProjectsPattern = regexp.MustCompile(`\ballprojects\s*\{`)

var applyPatterns sync.Map

// applyDirectivePattern recognizes plugin("id"), apply(plugin = "id") and
// apply plugin: 'id'.
func applyDirectivePattern(id string) *regexp.Regexp {
	if re, ok := applyPatterns.Load(id); ok {
		return re.(*regexp.Regexp)
	}
	q := regexp.QuoteMeta(id)
	re := regexp.MustCompile(`plugin\s*\(\s*["']` + q + `["']\s*\)|plugin\s*[:=]\s*["']` + q + `["']`)
	actual, _ := applyPatterns.LoadOrStore(id, re)
	return actual.(*regexp.Regexp)
}

// ClassifyAllProjects determines whether id is applied workspace-wide.
func ClassifyAllProjects(content, id string) ApplyState {
	if !allProjectsPattern.MatchString(content) {
		return AllProjectsMissing
	}
	if !applyDirectivePattern(id).MatchString(content) {
		return DirectiveMissing
	}
	return DirectivePresent
}

// EnsureAllProjectsApply applies id to all projects. A missing allprojects
// block is appended. An existing block without the directive is never edited;
// an Advisory carrying the snippet to add is returned instead.
func EnsureAllProjectsApply(path, content, id string) (string, ApplyState, *Advisory) {
	state := ClassifyAllProjects(content, id)
	switch state {
	case AllProjectsMissing:
		return appendAllProjects(content, id), state, nil
	case DirectiveMissing:
		return content, state, applyMissingAdvisory(path, id)
	default:
		return content, state, nil
	}
}

func appendAllProjects(content, id string) string {
	if content == "" {
		return AllProjectsBlock(id)
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + AllProjectsBlock(id)
}

// ManualApplySnippet is the block an operator is asked to add by hand.
func ManualApplySnippet(id string) string {
	return "allprojects {\n  apply {\n      " + ApplyDirective(id) + "\n  }\n}"
}

func applyMissingAdvisory(path, id string) *Advisory {
	snippet := ManualApplySnippet(id)
	return &Advisory{
		Path:    path,
		Kind:    AdvisoryApplyMissing,
		Message: fmt.Sprintf("Please add the %s plugin to your %s:\n%s", id, path, snippet),
		Snippet: snippet,
	}
}

package gradle

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// PluginState classifies a build file before the plugin declaration step.
type PluginState int

const (
	// NoPluginsBlock: no `plugins {` anchor.
	NoPluginsBlock PluginState = iota
	// BlockWithoutDeclaration: anchor present, plugin id not mentioned.
	BlockWithoutDeclaration
	// VersionMismatch: declared at a different version.
	VersionMismatch
	// VersionMatch: declared at the expected version.
	VersionMatch
	// UnrecognizedDeclaration: the id is mentioned but not in a shape the
	// declaration pattern understands.
	UnrecognizedDeclaration
)

func (s PluginState) String() string {
	switch s {
	case NoPluginsBlock:
		return "no-plugins-block"
	case BlockWithoutDeclaration:
		return "block-without-declaration"
	case VersionMismatch:
		return "version-mismatch"
	case VersionMatch:
		return "version-match"
	case UnrecognizedDeclaration:
		return "unrecognized-declaration"
	default:
		return fmt.Sprintf("PluginState(%d)", int(s))
	}
}

var pluginsBlockPattern = regexp.MustCompile(`\bplugins\s*\{`)

// HasPluginsBlock reports whether content has a `plugins {` anchor.
func HasPluginsBlock(content string) bool {
	return pluginsBlockPattern.MatchString(content)
}

var mentionPatterns sync.Map

// mentionPattern matches id as a quoted string, so longer ids sharing its
// prefix do not count.
func mentionPattern(id string) *regexp.Regexp {
	if re, ok := mentionPatterns.Load(id); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`["']` + regexp.QuoteMeta(id) + `["']`)
	actual, _ := mentionPatterns.LoadOrStore(id, re)
	return actual.(*regexp.Regexp)
}

// mentionsPlugin reports whether id appears outside of apply directives.
// An apply directive alone does not declare the plugin.
func mentionsPlugin(content, id string) bool {
	stripped := applyDirectivePattern(id).ReplaceAllString(content, "")
	return mentionPattern(id).MatchString(stripped)
}

// ClassifyPluginBlock determines the state of content against the expected
// version of id. States are checked in a fixed order and exactly one applies.
// The declared version is returned when one was found.
func ClassifyPluginBlock(content, id, version string) (PluginState, string) {
	if !HasPluginsBlock(content) {
		return NoPluginsBlock, ""
	}
	if !mentionsPlugin(content, id) {
		return BlockWithoutDeclaration, ""
	}
	current, ok := ExtractPluginVersion(content, id)
	if !ok {
		return UnrecognizedDeclaration, ""
	}
	if current != version {
		return VersionMismatch, current
	}
	return VersionMatch, current
}

// prependPluginsBlock puts a fresh plugins block in front of content.
func prependPluginsBlock(content string, d Dialect, id, version string) string {
	return d.PluginsBlock(id, version) + content
}

// insertDeclaration adds the declaration as the first statement of the first
// plugins block. When the opening line continues after the brace, the rest
// of that line moves below the declaration.
func insertDeclaration(content string, d Dialect, id, version string) string {
	loc := pluginsBlockPattern.FindStringIndex(content)
	if loc == nil {
		return content
	}
	decl := indent + d.Declaration(id, version)
	open := loc[1]

	rest := content[open:]
	eol := strings.IndexByte(rest, '\n')
	line := rest
	if eol >= 0 {
		line = rest[:eol]
	}

	if strings.TrimSpace(line) != "" {
		return content[:open] + "\n" + decl + "\n" + rest
	}
	if eol < 0 {
		return content + "\n" + decl
	}
	at := open + eol + 1
	return content[:at] + decl + "\n" + content[at:]
}

package gradle

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// patterns caches compiled declaration patterns per plugin id.
var patterns sync.Map

// declarationPattern matches `id "x" version "v"` and `id("x") version("v")`
// with either quote style. Group 2 is the version.
func declarationPattern(id string) *regexp.Regexp {
	if re, ok := patterns.Load(id); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(id\s*\(?["']` + regexp.QuoteMeta(id) + `["']\)?\s*version\s*\(?["'])([^"']+)(["']\)?)`)
	actual, _ := patterns.LoadOrStore(id, re)
	return actual.(*regexp.Regexp)
}

// ExtractPluginVersion returns the version of the first declaration of id.
// Later declarations are ignored.
func ExtractPluginVersion(content, id string) (string, bool) {
	m := declarationPattern(id).FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[2], true
}

// ExtractPluginVersions returns the version of every declaration of id in
// order of appearance.
func ExtractPluginVersions(content, id string) []string {
	var versions []string
	for _, m := range declarationPattern(id).FindAllStringSubmatch(content, -1) {
		versions = append(versions, m[2])
	}
	return versions
}

// CountPluginDeclarations returns how many declarations of id content holds.
func CountPluginDeclarations(content, id string) int {
	return len(declarationPattern(id).FindAllStringIndex(content, -1))
}

// UpdatePluginVersion rewrites the version token of the first declaration of
// id. All other bytes are kept. Content without a declaration is returned as is.
func UpdatePluginVersion(content, id, version string) string {
	loc := declarationPattern(id).FindStringSubmatchIndex(content)
	if loc == nil {
		return content
	}
	return content[:loc[4]] + version + content[loc[5]:]
}

// UpdateAllPluginVersions rewrites the version token of every declaration.
func UpdateAllPluginVersions(content, id, version string) string {
	locs := declarationPattern(id).FindAllStringSubmatchIndex(content, -1)
	if locs == nil {
		return content
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(content[last:loc[4]])
		b.WriteString(version)
		last = loc[5]
	}
	b.WriteString(content[last:])
	return b.String()
}

// ValidateVersion rejects versions the declaration pattern could not read
// back after writing them.
func ValidateVersion(version string) error {
	if strings.TrimSpace(version) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidVersion)
	}
	if strings.ContainsAny(version, "\"'\\$ \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	return nil
}

// ValidatePluginID rejects ids that cannot be written between quotes.
func ValidatePluginID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "\"'\\ \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidPluginID, id)
	}
	return nil
}

// Package gradle keeps Gradle build files wired to the Nx project graph
// plugin. Build files are treated as opaque text: every edit is anchored on a
// narrow regular expression and anything the package cannot recognize is
// reported as an Advisory instead of being rewritten.
package gradle

import (
	"fmt"
	"strings"
)

const (
	// PluginID is the Gradle plugin that exports the project graph to Nx.
	PluginID = "dev.nx.gradle.project-graph"

	// DefaultPluginVersion is used when no version is configured.
	DefaultPluginVersion = "0.1.0"
)

// Dialect is the build script syntax, fixed by the file extension.
type Dialect int

const (
	Groovy Dialect = iota
	Kotlin
)

func (d Dialect) String() string {
	switch d {
	case Kotlin:
		return "kotlin"
	default:
		return "groovy"
	}
}

// DialectOf returns Kotlin for *.kts paths and Groovy otherwise.
func DialectOf(path string) Dialect {
	if strings.HasSuffix(path, ".kts") {
		return Kotlin
	}
	return Groovy
}

// BuildFileName is the build script sitting next to a settings script.
func (d Dialect) BuildFileName() string {
	if d == Kotlin {
		return "build.gradle.kts"
	}
	return "build.gradle"
}

// Declaration renders a plugins-block entry for id at version.
func (d Dialect) Declaration(id, version string) string {
	if d == Kotlin {
		return fmt.Sprintf(`id("%s") version("%s")`, id, version)
	}
	return fmt.Sprintf(`id "%s" version "%s"`, id, version)
}

// PluginsBlock renders a complete plugins block holding one declaration.
func (d Dialect) PluginsBlock(id, version string) string {
	return "plugins {\n" + indent + d.Declaration(id, version) + "\n}\n"
}

// ApplyDirective is the statement activating id; identical in both dialects.
func ApplyDirective(id string) string {
	return fmt.Sprintf(`plugin("%s")`, id)
}

// AllProjectsBlock applies id to every project of the build.
func AllProjectsBlock(id string) string {
	return "allprojects {\n" +
		indent + "apply {\n" +
		indent + indent + ApplyDirective(id) + "\n" +
		indent + "}\n" +
		"}\n"
}

const indent = "    "

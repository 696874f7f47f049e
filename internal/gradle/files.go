package gradle

import (
	"errors"
	"fmt"
	"path"

	"nxgradle/internal/workspace"
)

// DefaultSettingsPatterns locate multi-project roots in both dialects.
var DefaultSettingsPatterns = []string{"**/settings.gradle", "**/settings.gradle.kts"}

// BuildFile is the build script paired with a settings script.
type BuildFile struct {
	Path    string
	Dialect Dialect
	Content string
	// Created is true when the file did not exist and was created empty.
	Created bool
}

// FindSettingsFiles returns settings scripts in discovery order. No patterns
// means DefaultSettingsPatterns. An empty result is not an error.
func FindSettingsFiles(tree workspace.Tree, patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultSettingsPatterns
	}
	found, err := tree.Glob(patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to locate settings files: %w", err)
	}
	return found, nil
}

// BuildFilePath derives the sibling build script path for a settings script.
func BuildFilePath(settingsPath string) string {
	d := DialectOf(settingsPath)
	return path.Join(path.Dir(settingsPath), d.BuildFileName())
}

// EnsureBuildFile returns the build script next to settingsPath. An existing
// file is returned verbatim; a missing one is created empty.
func EnsureBuildFile(tree workspace.Tree, settingsPath string) (BuildFile, error) {
	f := BuildFile{
		Path:    BuildFilePath(settingsPath),
		Dialect: DialectOf(settingsPath),
	}

	if tree.Exists(f.Path) {
		content, err := tree.Read(f.Path)
		if err == nil {
			f.Content = content
			return f, nil
		}
		if !errors.Is(err, workspace.ErrNotExist) {
			return BuildFile{}, fmt.Errorf("failed to read build file: %w", err)
		}
	}

	if err := tree.Write(f.Path, ""); err != nil {
		return BuildFile{}, fmt.Errorf("failed to create build file: %w", err)
	}
	f.Created = true
	return f, nil
}

// EnsureBuildFiles materializes the build script for every settings script.
// Two settings scripts in one directory map to distinct build scripts since
// the dialect picks the name.
func EnsureBuildFiles(tree workspace.Tree, settingsPaths []string) ([]BuildFile, error) {
	files := make([]BuildFile, 0, len(settingsPaths))
	for _, p := range settingsPaths {
		f, err := EnsureBuildFile(tree, p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

package gradle

import (
	"errors"
	"testing"

	"nxgradle/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSettingsFiles(t *testing.T) {
	tree := workspace.NewMemTree(map[string]string{
		"settings.gradle":                       "",
		"apps/kotlin-app/settings.gradle.kts":   "",
		"apps/kotlin-app/build.gradle.kts":      "",
		"node_modules/some-pkg/settings.gradle": "",
		"libs/settings.gradle.bak":              "",
		"libs/shared/gradle/settings.gradle":    "",
	})

	got, err := FindSettingsFiles(tree)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"apps/kotlin-app/settings.gradle.kts",
		"libs/shared/gradle/settings.gradle",
		"settings.gradle",
	}, got)
}

func TestFindSettingsFiles_EmptyWorkspace(t *testing.T) {
	got, err := FindSettingsFiles(workspace.NewMemTree(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBuildFilePath(t *testing.T) {
	assert.Equal(t, "build.gradle", BuildFilePath("settings.gradle"))
	assert.Equal(t, "build.gradle.kts", BuildFilePath("settings.gradle.kts"))
	assert.Equal(t, "apps/a/build.gradle.kts", BuildFilePath("apps/a/settings.gradle.kts"))
	assert.Equal(t, Kotlin, DialectOf("apps/a/settings.gradle.kts"))
	assert.Equal(t, Groovy, DialectOf("apps/a/settings.gradle"))
}

func TestEnsureBuildFile_ExistingContentIsVerbatim(t *testing.T) {
	content := "plugins {\r\n\tid 'java'\r\n}\r\n// trailing ünïcode\n"
	tree := workspace.NewMemTree(map[string]string{
		"settings.gradle": "",
		"build.gradle":    content,
	})

	f, err := EnsureBuildFile(tree, "settings.gradle")
	require.NoError(t, err)
	assert.Equal(t, BuildFile{Path: "build.gradle", Dialect: Groovy, Content: content}, f)
}

func TestEnsureBuildFile_CreatesMissingFile(t *testing.T) {
	tree := workspace.NewMemTree(map[string]string{"app/settings.gradle.kts": ""})

	f, err := EnsureBuildFile(tree, "app/settings.gradle.kts")
	require.NoError(t, err)
	assert.Equal(t, BuildFile{Path: "app/build.gradle.kts", Dialect: Kotlin, Created: true}, f)
	assert.True(t, tree.Exists("app/build.gradle.kts"))

	// Second call sees the file it created.
	again, err := EnsureBuildFile(tree, "app/settings.gradle.kts")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, "", again.Content)
}

func TestEnsureBuildFiles_BothDialectsInOneDirectory(t *testing.T) {
	tree := workspace.NewMemTree(map[string]string{
		"settings.gradle":     "",
		"settings.gradle.kts": "",
	})
	files, err := EnsureBuildFiles(tree, []string{"settings.gradle", "settings.gradle.kts"})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "build.gradle", files[0].Path)
	assert.Equal(t, "build.gradle.kts", files[1].Path)
}

type brokenTree struct {
	*workspace.MemTree
	readErr  error
	writeErr error
}

func (b *brokenTree) Read(p string) (string, error) {
	if b.readErr != nil {
		return "", b.readErr
	}
	return b.MemTree.Read(p)
}

func (b *brokenTree) Write(p, content string) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	return b.MemTree.Write(p, content)
}

func TestEnsureBuildFile_IOFailures(t *testing.T) {
	ioErr := errors.New("permission denied")

	t.Run("read", func(t *testing.T) {
		tree := &brokenTree{MemTree: workspace.NewMemTree(map[string]string{"build.gradle": "x"}), readErr: ioErr}
		_, err := EnsureBuildFile(tree, "settings.gradle")
		assert.ErrorIs(t, err, ioErr)
	})

	t.Run("create", func(t *testing.T) {
		tree := &brokenTree{MemTree: workspace.NewMemTree(nil), writeErr: ioErr}
		_, err := EnsureBuildFiles(tree, []string{"settings.gradle"})
		assert.ErrorIs(t, err, ioErr)
	})
}

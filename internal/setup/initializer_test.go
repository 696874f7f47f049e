package setup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"nxgradle/internal/config"
	"nxgradle/internal/gradle"
	"nxgradle/internal/workspace"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	groovyDecl   = `id "dev.nx.gradle.project-graph" version "1.2.0"`
	appliedBlock = "allprojects {\n    apply {\n        plugin(\"dev.nx.gradle.project-graph\")\n    }\n}\n"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func newTestInitializer(t *testing.T, cfg InitConfig) *Initializer {
	t.Helper()
	i, err := NewInitializer(cfg)
	require.NoError(t, err)
	return i
}

func osConfig(root string) InitConfig {
	cfg := DefaultInitConfig(root)
	cfg.Plugin = gradle.DefaultOptions("1.2.0")
	return cfg
}

// seedWorkspace lays out a multi-project workspace covering the main states.
func seedWorkspace(t *testing.T, root string) {
	writeFile(t, root, "settings.gradle", "rootProject.name = 'root'\n")
	writeFile(t, root, "apps/kt/settings.gradle.kts", "")
	writeFile(t, root, "apps/kt/build.gradle.kts",
		"plugins {\n    id(\"dev.nx.gradle.project-graph\") version(\"1.0.0\")\n}\n\n"+
			"allprojects {\n    apply {\n        plugin(\"dev.nx.gradle.project-graph\")\n    }\n}\n")
	writeFile(t, root, "libs/shared/settings.gradle", "")
	writeFile(t, root, "libs/shared/build.gradle",
		"plugins {\n    "+groovyDecl+"\n}\n\nallprojects {\n    apply {\n        plugin(\"other.plugin\")\n    }\n}\n")
	writeFile(t, root, "node_modules/pkg/settings.gradle", "")
}

func TestInitialize_EndToEnd(t *testing.T) {
	root := t.TempDir()
	seedWorkspace(t, root)

	report, err := newTestInitializer(t, osConfig(root)).Initialize(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "1.2.0", report.ExpectedVersion)
	assert.Equal(t, []string{"apps/kt/settings.gradle.kts", "libs/shared/settings.gradle", "settings.gradle"}, report.SettingsFiles)
	// Created files are staged first, during materialization.
	assert.Equal(t, []string{"build.gradle", "apps/kt/build.gradle.kts"}, report.Written)
	assert.Equal(t, []string{"build.gradle"}, report.Created())

	// Root project: created from nothing.
	want := "plugins {\n    " + groovyDecl + "\n}\n\n" + appliedBlock
	if diff := cmp.Diff(want, readFile(t, root, "build.gradle")); diff != "" {
		t.Errorf("build.gradle mismatch (-want +got):\n%s", diff)
	}

	// Kotlin project: only the version token moved.
	assert.Contains(t, readFile(t, root, "apps/kt/build.gradle.kts"), `id("dev.nx.gradle.project-graph") version("1.2.0")`)

	// Foreign allprojects block: untouched, one advisory.
	require.Len(t, report.Advisories, 1)
	adv := report.Advisories[0]
	assert.Equal(t, "libs/shared/build.gradle", adv.Path)
	assert.Equal(t, gradle.AdvisoryApplyMissing, adv.Kind)
	assert.Contains(t, adv.Message, "Please add the dev.nx.gradle.project-graph plugin to your libs/shared/build.gradle:")

	_, err = os.Stat(filepath.Join(root, "node_modules", "pkg", "build.gradle"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "excluded directories are never touched")
}

func TestInitialize_SecondRunIsNoop(t *testing.T) {
	root := t.TempDir()
	seedWorkspace(t, root)
	initializer := newTestInitializer(t, osConfig(root))

	_, err := initializer.Initialize(context.Background())
	require.NoError(t, err)
	before := readFile(t, root, "build.gradle")

	report, err := initializer.Initialize(context.Background())
	require.NoError(t, err)
	assert.False(t, report.HasChanges())
	assert.Empty(t, report.Written)
	assert.Len(t, report.Advisories, 1, "the advisory repeats until the operator fixes the file")
	assert.Equal(t, before, readFile(t, root, "build.gradle"))
}

func TestInitialize_DryRunWritesNothing(t *testing.T) {
	root := t.TempDir()
	seedWorkspace(t, root)
	cfg := osConfig(root)
	cfg.DryRun = true

	report, err := newTestInitializer(t, cfg).Initialize(context.Background())
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.True(t, report.HasChanges())
	assert.Empty(t, report.Written)
	_, err = os.Stat(filepath.Join(root, "build.gradle"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, readFile(t, root, "apps/kt/build.gradle.kts"), `version("1.0.0")`)

	diffs := report.Diffs()
	require.Len(t, diffs, 2)
	assert.Equal(t, "apps/kt/build.gradle.kts", diffs[0].Path)
	assert.True(t, diffs[1].IsNew)
}

func manyProjects(n int) map[string]string {
	files := make(map[string]string)
	for i := 0; i < n; i++ {
		dir := fmt.Sprintf("p%02d", i)
		switch i % 4 {
		case 0:
			files[dir+"/settings.gradle"] = ""
		case 1:
			files[dir+"/settings.gradle.kts"] = ""
			files[dir+"/build.gradle.kts"] = "plugins {\n    kotlin(\"jvm\")\n}\n"
		case 2:
			files[dir+"/settings.gradle"] = ""
			files[dir+"/build.gradle"] = "plugins {\n    id 'dev.nx.gradle.project-graph' version '0.0.1'\n}\nallprojects {\n}\n"
		case 3:
			files[dir+"/settings.gradle"] = ""
			files[dir+"/build.gradle"] = "apply plugin: 'java'\n"
		}
	}
	return files
}

func TestInitialize_ParallelMatchesSequential(t *testing.T) {
	run := func(concurrency int) (*Report, map[string]string) {
		tree := workspace.NewMemTree(manyProjects(40))
		cfg := DefaultInitConfig("/ws")
		cfg.Tree = tree
		cfg.Plugin = gradle.DefaultOptions("1.2.0")
		cfg.Concurrency = concurrency
		report, err := newTestInitializer(t, cfg).Initialize(context.Background())
		require.NoError(t, err)
		return report, tree.Files()
	}

	seqReport, seqFiles := run(1)
	parReport, parFiles := run(8)

	if diff := cmp.Diff(seqReport.Files, parReport.Files); diff != "" {
		t.Errorf("file results differ (-seq +par):\n%s", diff)
	}
	if diff := cmp.Diff(seqReport.Advisories, parReport.Advisories); diff != "" {
		t.Errorf("advisories differ (-seq +par):\n%s", diff)
	}
	assert.Equal(t, seqReport.Written, parReport.Written)
	assert.Equal(t, seqFiles, parFiles)
	assert.Len(t, seqReport.Advisories, 10, "every allprojects-without-directive file warns")
}

type failingWrites struct {
	*workspace.MemTree
	failOn string
	err    error
}

func (f *failingWrites) Write(p, content string) error {
	if p == f.failOn {
		return f.err
	}
	return f.MemTree.Write(p, content)
}

func TestInitialize_CommitFailureStopsAtFirstError(t *testing.T) {
	ioErr := errors.New("disk full")
	tree := &failingWrites{
		MemTree: workspace.NewMemTree(map[string]string{
			"a/settings.gradle": "",
			"b/settings.gradle": "",
			"c/settings.gradle": "",
		}),
		failOn: "b/build.gradle",
		err:    ioErr,
	}
	cfg := DefaultInitConfig("/ws")
	cfg.Tree = tree

	report, err := newTestInitializer(t, cfg).Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ioErr)
	assert.ErrorIs(t, err, workspace.ErrCommitAborted)
	assert.Equal(t, []string{"a/build.gradle"}, report.Written)

	files := tree.Files()
	assert.Contains(t, files, "a/build.gradle")
	assert.NotContains(t, files, "c/build.gradle")
}

type unreadable struct {
	*workspace.MemTree
}

func (u *unreadable) Read(string) (string, error) {
	return "", errors.New("permission denied")
}

func TestInitialize_ReadFailureAbortsBeforeWriting(t *testing.T) {
	tree := &unreadable{workspace.NewMemTree(map[string]string{
		"settings.gradle": "",
		"build.gradle":    "plugins {\n}\n",
	})}
	cfg := DefaultInitConfig("/ws")
	cfg.Tree = tree

	report, err := newTestInitializer(t, cfg).Initialize(context.Background())
	require.ErrorContains(t, err, "permission denied")
	assert.Empty(t, report.Written)
	assert.Equal(t, "plugins {\n}\n", tree.Files()["build.gradle"])
}

func TestInitialize_EmptyWorkspace(t *testing.T) {
	cfg := DefaultInitConfig("/ws")
	cfg.Tree = workspace.NewMemTree(map[string]string{"README.md": "hi"})

	report, err := newTestInitializer(t, cfg).Initialize(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Files)
	assert.False(t, report.HasChanges())
}

func TestInitialize_Cancelled(t *testing.T) {
	cfg := DefaultInitConfig("/ws")
	cfg.Tree = workspace.NewMemTree(manyProjects(4))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestInitializer(t, cfg).Initialize(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInitialize_ProgressUpdates(t *testing.T) {
	progress := make(chan InitProgress, 16)
	cfg := DefaultInitConfig("/ws")
	cfg.Tree = workspace.NewMemTree(map[string]string{"settings.gradle": ""})
	cfg.ProgressChan = progress

	_, err := newTestInitializer(t, cfg).Initialize(context.Background())
	require.NoError(t, err)
	close(progress)

	var phases []string
	for p := range progress {
		phases = append(phases, p.Phase)
	}
	assert.Equal(t, []string{"locate", "materialize", "inject", "persist", "complete"}, phases)
}

func TestInitialize_RejectPolicyLeavesDuplicatesAlone(t *testing.T) {
	content := "plugins {\n    " + groovyDecl + "\n    " + groovyDecl + "\n}\n"
	tree := workspace.NewMemTree(map[string]string{
		"settings.gradle": "",
		"build.gradle":    content,
	})
	cfg := DefaultInitConfig("/ws")
	cfg.Tree = tree
	cfg.Plugin = gradle.Options{PluginID: gradle.PluginID, Version: "1.2.0", Duplicates: gradle.Reject}

	report, err := newTestInitializer(t, cfg).Initialize(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Advisories, 1)
	assert.ErrorIs(t, report.Advisories[0].Err, gradle.ErrDuplicateDeclaration)
	assert.Equal(t, content, tree.Files()["build.gradle"])
}

func TestNewInitializer_InvalidOptions(t *testing.T) {
	cfg := DefaultInitConfig("/ws")
	cfg.Plugin.Version = `1.0"`
	_, err := NewInitializer(cfg)
	assert.ErrorIs(t, err, gradle.ErrInvalidVersion)
}

func TestConfigFromSettings(t *testing.T) {
	c := config.DefaultConfig()
	c.Plugin.Version = "2.0.0"
	c.Plugin.Duplicates = "update-all"
	c.Workspace.Exclude = []string{"vendor"}
	c.Execution.Concurrency = 3

	ic, err := ConfigFromSettings("/ws", c)
	require.NoError(t, err)
	assert.Equal(t, "/ws", ic.Workspace)
	assert.Equal(t, gradle.Options{PluginID: gradle.PluginID, Version: "2.0.0", Duplicates: gradle.UpdateAll}, ic.Plugin)
	assert.Equal(t, []string{"vendor"}, ic.Exclude)
	assert.Equal(t, 3, ic.Concurrency)

	c.Plugin.Duplicates = "sometimes"
	_, err = ConfigFromSettings("/ws", c)
	assert.ErrorIs(t, err, gradle.ErrUnknownDuplicatePolicy)
}

func TestStatus(t *testing.T) {
	root := t.TempDir()
	seedWorkspace(t, root)
	initializer := newTestInitializer(t, osConfig(root))

	statuses, err := initializer.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	byPath := map[string]FileStatus{}
	for _, s := range statuses {
		byPath[s.Path] = s
	}
	kt := byPath["apps/kt/build.gradle.kts"]
	assert.Equal(t, gradle.Kotlin, kt.Dialect)
	assert.Equal(t, "1.0.0", kt.Version)
	assert.Equal(t, gradle.VersionMismatch, kt.PluginState)
	assert.Equal(t, gradle.DirectivePresent, kt.ApplyState)
	assert.True(t, kt.WouldChange)

	rootStatus := byPath["build.gradle"]
	assert.False(t, rootStatus.Exists)
	assert.Equal(t, gradle.NoPluginsBlock, rootStatus.PluginState)

	shared := byPath["libs/shared/build.gradle"]
	assert.False(t, shared.WouldChange)
	assert.Len(t, shared.Advisories, 1)
	assert.False(t, shared.UpToDate())

	_, err = os.Stat(filepath.Join(root, "build.gradle"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "status must not write")

	_, err = initializer.Initialize(context.Background())
	require.NoError(t, err)
	statuses, err = initializer.Status(context.Background())
	require.NoError(t, err)
	for _, s := range statuses {
		if s.Path == "libs/shared/build.gradle" {
			continue
		}
		assert.True(t, s.UpToDate(), s.Path)
	}
}

package setup

import (
	"context"

	"nxgradle/internal/gradle"
	"nxgradle/internal/workspace"
)

// FileStatus describes a build script without changing it.
type FileStatus struct {
	SettingsPath string
	Path         string
	Dialect      gradle.Dialect
	Exists       bool
	// Version is the first declared version, empty when none is recognized.
	Version      string
	Declarations int
	PluginState  gradle.PluginState
	ApplyState   gradle.ApplyState
	// WouldChange is true when a run would rewrite or create the file.
	WouldChange bool
	Advisories  []gradle.Advisory
}

// UpToDate reports whether a run would leave the file unchanged and silent.
func (s FileStatus) UpToDate() bool {
	return !s.WouldChange && len(s.Advisories) == 0
}

// Status reports the state of every build script. Nothing is written: missing
// build scripts are materialized in a staging layer that is discarded.
func (i *Initializer) Status(ctx context.Context) ([]FileStatus, error) {
	base, err := i.tree()
	if err != nil {
		return nil, err
	}
	staged := workspace.NewStagedTree(base)
	defer staged.Discard()

	settings, err := gradle.FindSettingsFiles(staged, i.config.SettingsPatterns...)
	if err != nil {
		return nil, err
	}

	opts := i.injector.Options()
	out := make([]FileStatus, 0, len(settings))
	for _, s := range settings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := gradle.EnsureBuildFile(staged, s)
		if err != nil {
			return nil, err
		}
		st := FileStatus{
			SettingsPath: s,
			Path:         f.Path,
			Dialect:      f.Dialect,
			Exists:       !f.Created,
			Declarations: gradle.CountPluginDeclarations(f.Content, opts.PluginID),
			ApplyState:   gradle.ClassifyAllProjects(f.Content, opts.PluginID),
		}
		st.PluginState, st.Version = gradle.ClassifyPluginBlock(f.Content, opts.PluginID, opts.Version)
		res := i.injector.Inject(f)
		st.WouldChange = res.Changed() || res.Created
		st.Advisories = res.Advisories
		out = append(out, st)
	}
	return out, nil
}

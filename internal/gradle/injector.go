package gradle

import (
	"fmt"
	"strings"
)

// DuplicatePolicy decides what happens when a file declares the plugin more
// than once.
type DuplicatePolicy string

const (
	// UpdateFirst rewrites the first declaration and reports the others.
	UpdateFirst DuplicatePolicy = "update-first"
	// UpdateAll rewrites every declaration.
	UpdateAll DuplicatePolicy = "update-all"
	// Reject leaves the file untouched and reports it.
	Reject DuplicatePolicy = "reject"
)

// ParseDuplicatePolicy accepts the policy names; empty means UpdateFirst.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return UpdateFirst, nil
	case UpdateFirst, UpdateAll, Reject:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (want update-first, update-all or reject)", ErrUnknownDuplicatePolicy, s)
	}
}

// Options configures an Injector. The expected version is always passed in
// explicitly.
type Options struct {
	PluginID   string
	Version    string
	Duplicates DuplicatePolicy
}

// DefaultOptions targets PluginID at version.
func DefaultOptions(version string) Options {
	return Options{
		PluginID:   PluginID,
		Version:    version,
		Duplicates: UpdateFirst,
	}
}

// Validate checks the id, version and policy.
func (o Options) Validate() error {
	if err := ValidatePluginID(o.PluginID); err != nil {
		return err
	}
	if err := ValidateVersion(o.Version); err != nil {
		return err
	}
	if _, err := ParseDuplicatePolicy(string(o.Duplicates)); err != nil {
		return err
	}
	return nil
}

// FileResult is the outcome of injecting one build file.
type FileResult struct {
	Path            string
	Dialect         Dialect
	Created         bool
	Before          string
	After           string
	PluginState     PluginState
	ApplyState      ApplyState
	PreviousVersion string
	Declarations    int
	Skipped         bool
	Advisories      []Advisory
}

// Changed reports whether the file content differs after injection.
func (r FileResult) Changed() bool {
	return r.Before != r.After
}

// Injector adds and maintains the plugin declaration and its allprojects
// application in build files.
type Injector struct {
	opts Options
}

// NewInjector validates opts and returns an Injector.
func NewInjector(opts Options) (*Injector, error) {
	if opts.Duplicates == "" {
		opts.Duplicates = UpdateFirst
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Injector{opts: opts}, nil
}

// Options returns the injector configuration.
func (inj *Injector) Options() Options {
	return inj.opts
}

// Inject runs the declaration step then the allprojects step on f. It is
// pure: nothing is written.
func (inj *Injector) Inject(f BuildFile) FileResult {
	id, version := inj.opts.PluginID, inj.opts.Version
	res := FileResult{
		Path:    f.Path,
		Dialect: f.Dialect,
		Created: f.Created,
		Before:  f.Content,
	}

	res.Declarations = CountPluginDeclarations(f.Content, id)
	if res.Declarations > 1 && inj.opts.Duplicates == Reject {
		res.After = f.Content
		res.PluginState, res.PreviousVersion = ClassifyPluginBlock(f.Content, id, version)
		res.ApplyState = ClassifyAllProjects(f.Content, id)
		res.Skipped = true
		res.Advisories = append(res.Advisories, duplicateAdvisory(f.Path, id, res.Declarations, ErrDuplicateDeclaration))
		return res
	}

	content, state, prev := inj.ensureDeclaration(f.Dialect, f.Content)
	res.PluginState, res.PreviousVersion = state, prev

	switch {
	case state == UnrecognizedDeclaration:
		res.Advisories = append(res.Advisories, unrecognizedAdvisory(f.Path, f.Dialect, id, version))
	case inj.opts.Duplicates == UpdateFirst:
		// Counted after the declaration step: a prepended block can add a copy.
		if n := CountPluginDeclarations(content, id); n > 1 {
			res.Advisories = append(res.Advisories, duplicateAdvisory(f.Path, id, n, nil))
		}
	}

	content, applyState, adv := EnsureAllProjectsApply(f.Path, content, id)
	res.ApplyState = applyState
	if adv != nil {
		res.Advisories = append(res.Advisories, *adv)
	}

	res.After = content
	return res
}

// EnsureDeclaration runs only the plugins-block state machine.
func (inj *Injector) EnsureDeclaration(d Dialect, content string) (string, PluginState) {
	out, state, _ := inj.ensureDeclaration(d, content)
	return out, state
}

func (inj *Injector) ensureDeclaration(d Dialect, content string) (string, PluginState, string) {
	id, version := inj.opts.PluginID, inj.opts.Version
	state, current := ClassifyPluginBlock(content, id, version)

	switch state {
	case NoPluginsBlock:
		out := prependPluginsBlock(content, d, id, version)
		if inj.opts.Duplicates == UpdateAll {
			// Declarations outside any plugins block are now later copies.
			out = UpdateAllPluginVersions(out, id, version)
		}
		return out, state, current
	case BlockWithoutDeclaration:
		return insertDeclaration(content, d, id, version), state, current
	case VersionMismatch:
		if inj.opts.Duplicates == UpdateAll {
			return UpdateAllPluginVersions(content, id, version), state, current
		}
		return UpdatePluginVersion(content, id, version), state, current
	case VersionMatch:
		if inj.opts.Duplicates == UpdateAll {
			// The first copy is current; later copies may still be stale.
			return UpdateAllPluginVersions(content, id, version), state, current
		}
		return content, state, current
	default:
		return content, state, current
	}
}

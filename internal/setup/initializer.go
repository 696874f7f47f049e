// Package setup implements "nxgradle add-plugin": it finds every Gradle
// settings script in a workspace, makes sure the sibling build script declares
// and applies the Nx project graph plugin, and persists the result in one
// flush at the end.
//
// The run is split in phases:
//  1. Locate settings scripts (gradle.FindSettingsFiles)
//  2. Materialize build scripts, creating missing ones empty
//  3. Compute injected content for every file (optionally in parallel)
//  4. Stage changed files in discovery order and report advisories
//  5. Commit staged files unless this is a dry run
//
// Related files:
//   - status.go: read-only per-file report
//   - report.go: run report and diff previews
package setup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"nxgradle/internal/config"
	"nxgradle/internal/gradle"
	"nxgradle/internal/logging"
	"nxgradle/internal/workspace"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// InitProgress represents a progress update during a run.
type InitProgress struct {
	Phase   string  // Current phase name
	Message string  // Human-readable status message
	Percent float64 // 0.0 - 1.0 completion percentage
	IsError bool    // True if this is an error message
}

// InitConfig holds configuration for a run.
type InitConfig struct {
	Workspace        string
	Tree             workspace.Tree // nil: the OS tree rooted at Workspace
	SettingsPatterns []string
	Exclude          []string // nil: workspace.DefaultExclude
	Plugin           gradle.Options
	DryRun           bool
	Concurrency      int               // files computed in parallel; <= 1 is sequential
	ProgressChan     chan InitProgress // Channel for progress updates
	Logger           *zap.Logger
}

// DefaultInitConfig returns sensible defaults.
func DefaultInitConfig(ws string) InitConfig {
	if ws == "" {
		ws, _ = os.Getwd()
	}
	return InitConfig{
		Workspace:        ws,
		SettingsPatterns: gradle.DefaultSettingsPatterns,
		Plugin:           gradle.DefaultOptions(gradle.DefaultPluginVersion),
		Concurrency:      1,
		Logger:           zap.NewNop(),
	}
}

// ConfigFromSettings builds an InitConfig from loaded configuration.
func ConfigFromSettings(ws string, cfg *config.Config) (InitConfig, error) {
	policy, err := cfg.DuplicatePolicy()
	if err != nil {
		return InitConfig{}, err
	}
	ic := DefaultInitConfig(ws)
	ic.Plugin = gradle.Options{
		PluginID:   cfg.Plugin.ID,
		Version:    cfg.Plugin.Version,
		Duplicates: policy,
	}
	if len(cfg.Workspace.SettingsPatterns) > 0 {
		ic.SettingsPatterns = cfg.Workspace.SettingsPatterns
	}
	ic.Exclude = cfg.Workspace.Exclude
	ic.Concurrency = cfg.Execution.Concurrency
	return ic, nil
}

// Initializer runs plugin injection over a workspace.
type Initializer struct {
	config   InitConfig
	injector *gradle.Injector
	log      *zap.Logger
}

// NewInitializer validates the plugin options and returns an Initializer.
func NewInitializer(cfg InitConfig) (*Initializer, error) {
	inj, err := gradle.NewInjector(cfg.Plugin)
	if err != nil {
		return nil, fmt.Errorf("invalid plugin options: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if len(cfg.SettingsPatterns) == 0 {
		cfg.SettingsPatterns = gradle.DefaultSettingsPatterns
	}
	return &Initializer{
		config:   cfg,
		injector: inj,
		log:      cfg.Logger,
	}, nil
}

// Config returns the run configuration.
func (i *Initializer) Config() InitConfig {
	return i.config
}

// tree returns the backing tree for a run.
func (i *Initializer) tree() (workspace.Tree, error) {
	if i.config.Tree != nil {
		return i.config.Tree, nil
	}
	return workspace.NewOSTree(i.config.Workspace, i.config.Exclude)
}

// Initialize performs a full run. Advisories never fail the run; I/O
// failures do, and abort before anything is committed unless they occur
// during the commit itself.
func (i *Initializer) Initialize(ctx context.Context) (*Report, error) {
	start := time.Now()
	opts := i.injector.Options()
	report := &Report{
		RunID:           uuid.NewString(),
		Workspace:       i.config.Workspace,
		ExpectedVersion: opts.Version,
		DryRun:          i.config.DryRun,
	}
	audit := logging.Audit(report.RunID)
	audit.RunStart(i.config.Workspace, opts.Version, i.config.DryRun)
	log := i.log.With(zap.String("run_id", report.RunID))

	err := i.run(ctx, report, log, audit)
	report.Duration = time.Since(start)
	audit.RunEnd(len(report.Files), len(report.Changes()), len(report.Advisories), report.Duration, err)
	if err != nil {
		i.sendError(err)
		log.Error("run failed", zap.Error(err))
		return report, err
	}

	i.sendProgress("complete", "Done", 1.0)
	log.Info("run complete",
		zap.Int("files", len(report.Files)),
		zap.Int("changed", len(report.Changes())),
		zap.Int("advisories", len(report.Advisories)),
		zap.Int("written", len(report.Written)),
		zap.Bool("dry_run", report.DryRun),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (i *Initializer) run(ctx context.Context, report *Report, log *zap.Logger, audit *logging.AuditLogger) error {
	base, err := i.tree()
	if err != nil {
		return err
	}
	staged := workspace.NewStagedTree(base)

	// =========================================================================
	// PHASE 1: Locate settings scripts
	// =========================================================================
	i.sendProgress("locate", "Locating Gradle settings files...", 0.0)

	settings, err := gradle.FindSettingsFiles(staged, i.config.SettingsPatterns...)
	if err != nil {
		return err
	}
	report.SettingsFiles = settings
	logging.Workspace("found %d settings files", len(settings))
	if len(settings) == 0 {
		log.Info("no Gradle settings files found", zap.String("workspace", i.config.Workspace))
	}

	// =========================================================================
	// PHASE 2: Materialize build scripts
	// =========================================================================
	i.sendProgress("materialize", "Reading build files...", 0.2)

	files := make([]gradle.BuildFile, 0, len(settings))
	for _, s := range settings {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := gradle.EnsureBuildFile(staged, s)
		if err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
		if f.Created {
			logging.Workspace("created empty %s", f.Path)
		}
		logging.WorkspaceDebug("%s -> %s (%s)", s, f.Path, f.Dialect)
		files = append(files, f)
	}

	// =========================================================================
	// PHASE 3: Compute injected content
	// =========================================================================
	i.sendProgress("inject", fmt.Sprintf("Injecting %s %s...", gradle.PluginID, report.ExpectedVersion), 0.4)

	results, err := i.computeAll(ctx, files)
	if err != nil {
		return err
	}
	report.Files = results

	// =========================================================================
	// PHASE 4: Stage and report, in discovery order
	// =========================================================================
	for _, r := range results {
		logging.GradleDebug("%s: plugin=%s apply=%s declarations=%d", r.Path, r.PluginState, r.ApplyState, r.Declarations)
		if r.Changed() {
			if err := staged.Write(r.Path, r.After); err != nil {
				return err
			}
			logging.Inject("%s: %s -> updated (previous version %q)", r.Path, r.PluginState, r.PreviousVersion)
			audit.FileChange(r.Path, r.Created, r.PreviousVersion)
		}
		for _, a := range r.Advisories {
			report.Advisories = append(report.Advisories, a)
			logging.InjectWarn("%s", a.Message)
			audit.Advisory(a.Path, string(a.Kind), a.Message)
			log.Warn("advisory", zap.String("path", a.Path), zap.String("kind", string(a.Kind)))
		}
	}

	// =========================================================================
	// PHASE 5: Persist
	// =========================================================================
	if i.config.DryRun {
		staged.Discard()
		logging.Persist("dry run: %d file(s) would change", len(report.Changes()))
		return nil
	}

	i.sendProgress("persist", "Writing build files...", 0.8)
	commitStart := time.Now()
	written, err := staged.Commit()
	report.Written = written
	audit.Commit(len(written), time.Since(commitStart), err)
	if err != nil {
		logging.PersistError("commit failed after %d file(s): %v", len(written), err)
		return err
	}
	logging.Persist("wrote %d file(s)", len(written))
	return nil
}

// computeAll runs the injector over files. Results keep the input order
// regardless of concurrency.
func (i *Initializer) computeAll(ctx context.Context, files []gradle.BuildFile) ([]gradle.FileResult, error) {
	results := make([]gradle.FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	limit := i.config.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for idx, f := range files {
		idx, f := idx, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[idx] = i.injector.Inject(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// errgroup's context is cancelled on Wait; report the caller's.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// sendProgress sends a progress update if channel is configured.
func (i *Initializer) sendProgress(phase, message string, percent float64) {
	if i.config.ProgressChan == nil {
		return
	}
	select {
	case i.config.ProgressChan <- InitProgress{Phase: phase, Message: message, Percent: percent}:
	default:
		// Don't block if channel is full
	}
}

func (i *Initializer) sendError(err error) {
	if i.config.ProgressChan == nil {
		return
	}
	msg := err.Error()
	if errors.Is(err, context.Canceled) {
		msg = "cancelled"
	}
	select {
	case i.config.ProgressChan <- InitProgress{Phase: "error", Message: msg, IsError: true}:
	default:
	}
}

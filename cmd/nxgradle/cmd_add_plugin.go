package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"sort"
	"sync"
	"syscall"

	"nxgradle/cmd/nxgradle/ui"
	"nxgradle/internal/config"
	"nxgradle/internal/logging"
	"nxgradle/internal/setup"
	"nxgradle/internal/watch"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	pluginVersion string
	dryRun        bool
	duplicates    string
	concurrency   int
	watchMode     bool
)

var addPluginCmd = &cobra.Command{
	Use:     "add-plugin",
	Aliases: []string{"init"},
	Short:   "Declare and apply the Nx project graph plugin in every build script",
	Long: `Finds every Gradle settings script in the workspace and, for the build script
next to it (created empty when missing):
  - declares dev.nx.gradle.project-graph in the plugins block at the expected version
  - applies the plugin to all projects in an allprojects block

Nothing is written if any file cannot be read. With --watch, the workspace is
re-processed whenever a settings or build script changes.`,
	Args: cobra.NoArgs,
	RunE: runAddPlugin,
}

func init() {
	addPluginCmd.Flags().StringVar(&pluginVersion, "plugin-version", "", "Plugin version to declare (default from config)")
	addPluginCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the changes without writing them")
	addPluginCmd.Flags().StringVar(&duplicates, "duplicates", "", "Duplicate declaration policy: update-first, update-all, reject")
	addPluginCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Build files processed in parallel")
	addPluginCmd.Flags().BoolVar(&watchMode, "watch", false, "Re-run when settings or build scripts change")
}

// effectiveSettings applies the flags that were explicitly set on top of the
// loaded configuration.
func effectiveSettings(cmd *cobra.Command) (*config.Config, error) {
	cfg := *settings
	flags := cmd.Flags()
	if flags.Changed("plugin-version") {
		cfg.Plugin.Version = pluginVersion
	}
	if flags.Changed("duplicates") {
		cfg.Plugin.Duplicates = duplicates
	}
	if flags.Changed("concurrency") {
		cfg.Execution.Concurrency = concurrency
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newInitializer(cfg *config.Config, dry bool, progress chan setup.InitProgress) (*setup.Initializer, error) {
	ic, err := setup.ConfigFromSettings(workspace, cfg)
	if err != nil {
		return nil, err
	}
	ic.DryRun = dry
	ic.Logger = logger
	ic.ProgressChan = progress
	return setup.NewInitializer(ic)
}

// showProgress reports whether the progress display can be drawn on stderr.
func showProgress() bool {
	return !verbose && isatty.IsTerminal(os.Stderr.Fd())
}

func runAddPlugin(cmd *cobra.Command, args []string) error {
	cfg, err := effectiveSettings(cmd)
	if err != nil {
		return err
	}

	if watchMode && dryRun {
		return fmt.Errorf("--watch cannot be combined with --dry-run")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	report, err := runOnce(ctx, out, cfg, dryRun)
	if err != nil {
		return err
	}
	if !watchMode {
		return nil
	}

	session := uuid.NewString()
	w, err := watch.NewWatcher(workspace, cfg.GetWatchDebounce(), func(ctx context.Context, changed []string) ([]string, error) {
		logging.Audit(session).WatchTrigger(changed)
		fmt.Fprintln(out)
		fmt.Fprintln(out, styles.Muted.Render(fmt.Sprintf("Changed: %v", changed)))
		r, err := runOnce(ctx, out, cfg, false)
		if err != nil {
			fmt.Fprintln(out, styles.Error.Render("Error:"), err)
			return nil, err
		}
		return settingsDirs(r), nil
	})
	if err != nil {
		return err
	}
	w.Add(settingsDirs(report)...)
	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, styles.Info.Render("Watching for changes, press Ctrl+C to stop"))
	<-ctx.Done()
	w.Stop()

	st := w.Stats()
	logger.Debug("watch stopped",
		zap.Int("events", st.Events),
		zap.Int("runs", st.Runs),
		zap.Int("errors", st.Errors),
	)
	return nil
}

// runOnce performs one run and renders its report.
func runOnce(ctx context.Context, out io.Writer, cfg *config.Config, dry bool) (*setup.Report, error) {
	var updates chan setup.InitProgress
	if showProgress() {
		updates = make(chan setup.InitProgress, 16)
	}
	initializer, err := newInitializer(cfg, dry, updates)
	if err != nil {
		return nil, err
	}

	var display sync.WaitGroup
	if updates != nil {
		display.Add(1)
		go func() {
			defer display.Done()
			if err := ui.RunProgress(os.Stderr, updates, styles); err != nil {
				logger.Debug("progress display failed", zap.Error(err))
			}
		}()
	}
	report, err := initializer.Initialize(ctx)
	if updates != nil {
		close(updates)
		display.Wait()
	}
	if err != nil {
		return report, err
	}

	if dry {
		for _, d := range report.Diffs() {
			styles.RenderDiff(out, d)
		}
	}
	styles.RenderReport(out, report)
	return report, nil
}

// settingsDirs returns the directories holding settings scripts, relative to
// the workspace, so the watcher sees build scripts next to them.
func settingsDirs(r *setup.Report) []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]bool)
	var dirs []string
	for _, s := range r.SettingsFiles {
		d := path.Dir(s)
		if d == "." || seen[d] {
			continue
		}
		seen[d] = true
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

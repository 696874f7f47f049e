// Package main implements the nxgradle CLI.
//
// nxgradle wires Gradle workspaces into the Nx project graph: it adds the
// dev.nx.gradle.project-graph plugin to every build script that sits next to
// a settings script and applies it to all projects.
//
// File Index:
//   - main.go           - entry point, root command, global flags
//   - cmd_add_plugin.go - add-plugin (alias init), watch mode
//   - cmd_check.go      - check, dry-run diff with a CI exit code
//   - cmd_status.go     - per-file status table
//   - cmd_config.go     - config init / config show
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"nxgradle/cmd/nxgradle/ui"
	"nxgradle/internal/config"
	"nxgradle/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string

	// Set up in PersistentPreRunE
	logger   *zap.Logger
	settings *config.Config
	styles   ui.Styles
)

// errChangesPending makes the process exit 1 without printing an error.
var errChangesPending = errors.New("changes pending")

var rootCmd = &cobra.Command{
	Use:   "nxgradle",
	Short: "Add the Nx project graph plugin to Gradle workspaces",
	Long: `nxgradle finds every settings.gradle(.kts) in a workspace and makes sure the
build script next to it declares dev.nx.gradle.project-graph at the expected
version and applies it to all projects.

Files are only written at the end of a successful run. Edits that cannot be
made safely are reported as advisories with the exact text to add.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ws, err := resolveWorkspace(workspace)
		if err != nil {
			return err
		}
		workspace = ws

		settings, err = config.LoadWorkspace(workspace, configPath)
		if err != nil {
			return err
		}
		if err := settings.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger, err = newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := logging.Initialize(workspace, settings.Logging); err != nil {
			logger.Warn("file logging disabled", zap.Error(err))
		}
		if err := logging.InitAudit(); err != nil {
			logger.Warn("audit journal disabled", zap.Error(err))
		}
		logging.Boot("nxgradle %s in %s", cmd.Name(), workspace)

		styles = ui.DefaultStyles()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// newLogger builds the process logger on stderr. Command output is rendered
// separately, so only warnings surface unless verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func resolveWorkspace(ws string) (string, error) {
	if ws == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		ws = cwd
	}
	abs, err := filepath.Abs(ws)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("workspace %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace %s is not a directory", abs)
	}
	return abs, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.nxgradle/config.yaml)")

	rootCmd.AddCommand(
		addPluginCmd,
		checkCmd,
		statusCmd,
		configCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errChangesPending) {
			fmt.Fprintln(os.Stderr, ui.DefaultStyles().Error.Render("Error:"), err)
		}
		os.Exit(1)
	}
}

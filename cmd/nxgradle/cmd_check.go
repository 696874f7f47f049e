package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Exit non-zero when add-plugin would change any file",
	Long: `Runs add-plugin as a dry run and prints the diff of every file that would
change. Exits 1 when changes are pending. Advisories are printed but do not
affect the exit code.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveSettings(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := runOnce(ctx, cmd.OutOrStdout(), cfg, true)
		if err != nil {
			return err
		}
		if report.HasChanges() {
			return errChangesPending
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&pluginVersion, "plugin-version", "", "Plugin version to expect (default from config)")
	checkCmd.Flags().StringVar(&duplicates, "duplicates", "", "Duplicate declaration policy: update-first, update-all, reject")
}

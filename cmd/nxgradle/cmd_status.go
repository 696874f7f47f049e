package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the plugin state of every build script",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveSettings(cmd)
		if err != nil {
			return err
		}
		initializer, err := newInitializer(cfg, true, nil)
		if err != nil {
			return err
		}
		rows, err := initializer.Status(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, styles.Badge.Render(fmt.Sprintf("%s %s", cfg.Plugin.ID, cfg.Plugin.Version)))
		styles.RenderStatus(out, rows)
		for _, r := range rows {
			styles.RenderAdvisories(out, r.Advisories)
		}
		return nil
	},
}

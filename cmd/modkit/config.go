// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/modkit/modkit/internal/config"
)

// newConfigCommand creates the `modkit config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modkit configuration",
		Long: `Manage modkit configuration.

Configuration is read from, in order:
  - the --config flag
  - ./modkit.cue
  - $XDG_CONFIG_HOME/modkit/modkit.cue (%APPDATA%\modkit\modkit.cue on Windows)

MODKIT_* environment variables override file values, e.g. MODKIT_MODS_DIR.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if app.cfgPath != "" {
				fmt.Fprintf(w, "// source: %s\n", app.cfgPath)
			} else {
				fmt.Fprintln(w, "// source: defaults")
			}
			fmt.Fprint(w, config.GenerateCUE(app.cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cfgPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("(using defaults)"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.cfgPath)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file in the user config directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			path := filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)
			created, err := config.WriteDefault(path)
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "Config file already exists: %s\n", path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	return cfgCmd
}

// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for modkit.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "modkit",
		Short: "Load, merge and package game mods",
		Long: TitleStyle.Render("modkit") + SubtitleStyle.Render(" - Load, merge and package game mods") + `

modkit discovers mods (folders with a mod.json or .modpak archives), orders
them by mod_order.json or by priority and dependencies, and merges their
JSON definitions into a single registry.

` + SubtitleStyle.Render("Examples:") + `
  modkit load                    Load the mods directory and summarize it
  modkit order                   Show the resolved load order
  modkit show rain --format toml Show a merged definition
  modkit pack ./MyMod            Build MyMod.modpak
  modkit config show             Show current configuration`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.loadConfig(cmd.Context())
		},
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&app.cfgFile, "config", "", "config file (default is ./modkit.cue, then $XDG_CONFIG_HOME/modkit/modkit.cue)")
	root.PersistentFlags().StringVarP(&app.modsDir, "mods-dir", "d", "", "mods directory (overrides config)")

	root.AddCommand(
		newLoadCommand(app),
		newOrderCommand(app),
		newListCommand(app),
		newShowCommand(app),
		newVerifyCommand(app),
		newPackCommand(app),
		newUnpackCommand(app),
		newInspectCommand(app),
		newConfigCommand(app),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main.
func Execute() {
	root := NewRootCommand(NewApp(Dependencies{}))
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

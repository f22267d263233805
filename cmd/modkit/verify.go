// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modkit/modkit/internal/discovery"
	"github.com/modkit/modkit/internal/validator"
)

func newVerifyCommand(app *App) *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check mods without loading them",
		Long: `Run structural checks over every discovered mod: archive payload
integrity, manifest versions, dependencies, dependency cycles and definition
files. Nothing is merged.

Examples:
  modkit verify
  modkit verify --jobs 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			found := app.discovery().Discover()
			defer func() { _ = discovery.CloseAll(found.Mods) }()

			v := validator.New(
				validator.WithJobs(jobs),
				validator.WithManifestFile(app.cfg.ManifestFile),
				validator.WithIgnore(app.cfg.Ignore...),
				validator.WithLogger(app.logger),
			)
			rep, err := v.Validate(cmd.Context(), found.Mods)
			if err != nil {
				return err
			}

			diags := append(found.Diagnostics, rep.Diagnostics...)
			renderDiagnostics(app.stderr, diags)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Checked %d mod(s), %d definition file(s)\n", rep.Checked, rep.Files)
			if n := countErrors(diags); n > 0 {
				fmt.Fprintln(w, ErrorStyle.Render("✗")+" Verification failed")
				return &ExitError{Code: 1, Err: fmt.Errorf("verification found %d error(s)", n)}
			}
			fmt.Fprintln(w, SuccessStyle.Render("✓")+" All mods are valid")
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "number of mods checked concurrently (default: number of CPUs)")
	return cmd
}

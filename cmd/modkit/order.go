// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modkit/modkit/internal/discovery"
	"github.com/modkit/modkit/pkg/diag"
	"github.com/modkit/modkit/pkg/loadorder"
	"github.com/modkit/modkit/pkg/modmanifest"
)

func newOrderCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "Show the resolved load order",
		Long: `Resolve and print the load order without loading any definitions.

The first entry of mod_order.json is the core mod and the rest follow the
file. Without an order file the configured core mod loads first and the
others are sorted by priority and dependencies.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := app.discovery()
			found := d.Discover()
			defer func() { _ = discovery.CloseAll(found.Mods) }()

			diags := append([]diag.Diagnostic(nil), found.Diagnostics...)
			lo, orderDiags := d.ReadLoadOrder()
			diags = append(diags, orderDiags...)

			manifests := make([]*modmanifest.Manifest, len(found.Mods))
			for i, m := range found.Mods {
				manifests[i] = m.Manifest
			}
			res, err := loadorder.Resolve(lo, app.cfg.CoreMod, manifests)
			diags = append(diags, res.Diagnostics...)
			renderDiagnostics(app.stderr, diags)
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Load order"), SubtitleStyle.Render("("+string(res.Strategy)+")"))
			for i, m := range res.Order {
				line := fmt.Sprintf("  %d. %s", i+1, IDStyle.Render(m.ID))
				if i == 0 {
					line += " " + SubtitleStyle.Render("[core]")
				}
				if len(m.Dependencies) > 0 {
					line += SubtitleStyle.Render(" <- " + strings.Join(m.Dependencies, ", "))
				}
				fmt.Fprintln(w, line)
			}
			if diag.HasErrors(diags) {
				return &ExitError{Code: 1, Err: fmt.Errorf("load order has %d error(s)", countErrors(diags))}
			}
			return nil
		},
	}
}

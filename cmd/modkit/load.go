// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/modkit/modkit/pkg/modmanager"
)

const (
	formatJSON = "json"
	formatTOML = "toml"
)

func newLoadCommand(app *App) *cobra.Command {
	var (
		validate bool
		snapshot string
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load every mod and summarize the merged registry",
		Long: `Load every mod in the mods directory, merge their definitions and print
a summary. Diagnostics are printed to stderr; the command exits with status 1
when any of them is an error.

Examples:
  modkit load
  modkit load --validate
  modkit load --snapshot cache/registry.msgpack`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.managerOptions()
			opts.Validate = opts.Validate || validate
			opts.SnapshotPath = snapshot

			m, res, err := app.loadMods(cmd.Context(), opts)
			if err != nil {
				return app.reportFatal(err)
			}
			defer m.Close()

			printLoadSummary(cmd.OutOrStdout(), m, res)
			if !res.Success {
				return &ExitError{Code: 1, Err: fmt.Errorf("load finished with %d error(s)", countErrors(res.Diagnostics))}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "run the validator before loading")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "write a msgpack registry snapshot after a successful load")
	return cmd
}

func printLoadSummary(w io.Writer, m *modmanager.Manager, res *modmanager.Result) {
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Load order"), SubtitleStyle.Render("("+string(res.Strategy)+")"))
	for i, mod := range res.Order {
		line := fmt.Sprintf("  %d. %s", i+1, IDStyle.Render(mod.ID))
		if mod.Version != "" {
			line += " " + mod.Version
		}
		if mod.Name != "" && mod.Name != mod.ID {
			line += " " + SubtitleStyle.Render(mod.Name)
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\n%s %d from %d file(s)\n", TitleStyle.Render("Definitions:"), m.Registry().Len(), res.Loaded)
	counts := m.Registry().CountByType()
	for _, t := range m.Types() {
		fmt.Fprintf(w, "  %-20s %d\n", t, counts[t])
	}

	fmt.Fprintln(w)
	if res.Success {
		fmt.Fprintln(w, SuccessStyle.Render("✓")+" Load complete")
	} else {
		fmt.Fprintln(w, ErrorStyle.Render("✗")+" Load completed with errors")
	}
}

func newListCommand(app *App) *cobra.Command {
	var typeFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List loaded definitions",
		Long: `List every definition of the merged registry with its type and the
mods that created and last modified it.

Examples:
  modkit list
  modkit list --type Weather`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := app.loadMods(cmd.Context(), app.managerOptions())
			if err != nil {
				return app.reportFatal(err)
			}
			defer m.Close()

			ids := m.Registry().IDs()
			if typeFilter != "" {
				ids = m.IDsByType(typeFilter)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tMOD\tLAST MODIFIED BY\tOPERATION")
			for _, id := range ids {
				md, ok := m.Definition(id)
				if !ok {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", md.ID, md.DefinitionType, md.OriginalModID, md.LastModifiedByModID, md.Operation)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&typeFilter, "type", "t", "", "only list definitions of this type")
	return cmd
}

func newShowCommand(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a merged definition",
		Long: `Show the merged data of one definition as JSON or TOML.

Examples:
  modkit show rain
  modkit show rain --format toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatJSON && format != formatTOML {
				return fmt.Errorf("unsupported format %q (use %s or %s)", format, formatJSON, formatTOML)
			}

			m, _, err := app.loadMods(cmd.Context(), app.managerOptions())
			if err != nil {
				return app.reportFatal(err)
			}
			defer m.Close()

			md, ok := m.Definition(args[0])
			if !ok {
				return &ExitError{Code: 1, Err: fmt.Errorf("definition %q not found", args[0])}
			}

			out, err := encodeDefinition(md.Data, format)
			if err != nil {
				return err
			}
			if app.verbose {
				fmt.Fprintf(app.stderr, "%s %s (%s) from %s, last modified by %s via %s\n",
					SubtitleStyle.Render("#"), md.ID, md.DefinitionType, md.OriginalModID, md.LastModifiedByModID, md.SourcePath)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format (json or toml)")
	return cmd
}

func encodeDefinition(data map[string]any, format string) ([]byte, error) {
	if format == formatTOML {
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(data); err != nil {
			return nil, fmt.Errorf("encode toml: %w", err)
		}
		return buf.Bytes(), nil
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(out, '\n'), nil
}

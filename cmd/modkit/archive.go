// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/modkit/modkit/internal/issue"
	"github.com/modkit/modkit/pkg/modarchive"
	"github.com/modkit/modkit/pkg/modsource"
)

func newPackCommand(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "pack <mod-dir>",
		Short: "Pack a mod directory into a " + modarchive.Ext + " archive",
		Long: `Pack a mod directory into a single compressed archive. The directory
must contain a mod.json at its root.

Examples:
  modkit pack ./Mods/MyMod
  modkit pack ./Mods/MyMod --output dist/MyMod.modpak`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := modarchive.Pack(args[0], output)
			if err != nil {
				return app.reportFatal(issue.NewErrorContext().
					WithOperation("pack mod").
					WithResource(args[0]).
					WithIssue(issue.PackFailedId).
					WithSuggestion("Check that the directory exists and contains " + app.cfg.ManifestFile).
					Wrap(err).
					BuildError())
			}
			info, err := os.Stat(out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Packed %s (%d bytes)\n", SuccessStyle.Render("✓"), out, info.Size())
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output archive path (default: <mod-id>"+modarchive.Ext+" next to the mod directory)")
	return cmd
}

func newUnpackCommand(app *App) *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "unpack <archive>",
		Short: "Extract a mod archive into a directory",
		Long: `Extract a mod archive. Every entry is decompressed and checked before
it is written.

Examples:
  modkit unpack MyMod.modpak
  modkit unpack MyMod.modpak --dest ./Mods/MyMod`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dest == "" {
				base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				dest = filepath.Join(filepath.Dir(args[0]), base)
			}
			out, err := modarchive.Unpack(args[0], dest)
			if err != nil {
				return app.reportFatal(issue.NewErrorContext().
					WithOperation("unpack archive").
					WithResource(args[0]).
					WithIssue(issue.ArchiveCorruptId).
					WithSuggestion("Re-create the archive with 'modkit pack'").
					Wrap(err).
					BuildError())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Extracted to %s\n", SuccessStyle.Render("✓"), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&dest, "dest", "", "destination directory (default: the archive name next to the archive)")
	return cmd
}

func newInspectCommand(app *App) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Show the manifest and table of contents of a mod archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := modsource.OpenArchive(args[0],
				modsource.WithManifestFile(app.cfg.ManifestFile),
				modsource.WithGlobCacheSize(app.cfg.GlobCacheSize))
			if err != nil {
				return err
			}
			defer src.Close()

			if err := src.Validate(); err != nil {
				return app.reportFatal(issue.NewErrorContext().
					WithOperation("inspect archive").
					WithResource(args[0]).
					WithIssue(issue.ArchiveCorruptId).
					Wrap(err).
					BuildError())
			}

			w := cmd.OutOrStdout()
			if m, err := src.Manifest(); err == nil {
				fmt.Fprintf(w, "%s %s", TitleStyle.Render("Mod:"), IDStyle.Render(m.ID))
				if m.Version != "" {
					fmt.Fprintf(w, " %s", m.Version)
				}
				fmt.Fprintln(w)
				if len(m.Dependencies) > 0 {
					fmt.Fprintf(w, "Depends on: %s\n", strings.Join(m.Dependencies, ", "))
				}
			} else {
				fmt.Fprintf(w, "%s %v\n", WarningStyle.Render("No valid manifest:"), err)
			}

			entries, err := src.Reader().Entries()
			if err != nil {
				return err
			}
			var raw, packed uint64
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\nPATH\tSIZE\tSTORED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", e.Path, e.UncompressedSize, e.CompressedSize)
				raw += e.UncompressedSize
				packed += e.CompressedSize
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(w, "\n%d entries, %d bytes (%d stored)\n", len(entries), raw, packed)

			if verify {
				if err := src.Verify(); err != nil {
					return app.reportFatal(issue.NewErrorContext().
						WithOperation("verify archive payload").
						WithResource(args[0]).
						WithIssue(issue.ArchiveCorruptId).
						Wrap(err).
						BuildError())
				}
				fmt.Fprintln(w, SuccessStyle.Render("✓")+" Payload verified")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "decompress and check every entry")
	return cmd
}

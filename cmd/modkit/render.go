// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/modkit/modkit/internal/issue"
	"github.com/modkit/modkit/pkg/diag"
)

// renderDiagnostics prints one line per diagnostic.
func renderDiagnostics(w io.Writer, diags []diag.Diagnostic) {
	for _, d := range diags {
		label := WarningStyle.Render("warning")
		if d.IsError() {
			label = ErrorStyle.Render("error")
		}
		fmt.Fprintf(w, "%s [%s]", label, d.Code)
		if d.ModID != "" {
			fmt.Fprintf(w, " %s", IDStyle.Render(d.ModID))
		}
		if d.Path != "" {
			fmt.Fprintf(w, " %s", SubtitleStyle.Render(d.Path))
		}
		fmt.Fprintf(w, ": %s", d.Message)
		if d.Cause != nil {
			fmt.Fprintf(w, ": %v", d.Cause)
		}
		fmt.Fprintln(w)
	}
}

func countErrors(diags []diag.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.IsError() {
			n++
		}
	}
	return n
}

// formatErrorForDisplay formats an error for user display, using the
// suggestions of an ActionableError when present.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// reportFatal prints the issue guide matching err in verbose mode and
// returns err as an ExitError.
func (a *App) reportFatal(err error) error {
	if iss := issue.IssueOf(err); iss != nil && a.verbose {
		if rendered, rerr := iss.Render("auto"); rerr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
	}
	return &ExitError{Code: 1, Err: err, Verbose: a.verbose}
}

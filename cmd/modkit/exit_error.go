// SPDX-License-Identifier: MPL-2.0

package cmd

import "fmt"

// ExitError signals a non-zero exit code without calling os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
	// Verbose includes the cause chain of an ActionableError in Error.
	Verbose bool
}

// Error returns the user-facing message, with suggestions when Err is actionable.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return formatErrorForDisplay(e.Err, e.Verbose)
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

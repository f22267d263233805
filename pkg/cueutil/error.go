// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
)

// ValidationError represents a schema violation at a specific field.
type ValidationError struct {
	// FilePath is the file being validated.
	FilePath string
	// Field is the JSON path to the invalid value (e.g., "dependencies[1]").
	Field string
	// Message is the validation error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.FilePath, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// FormatError flattens a CUE error into "<file>: <json-path>: <message>" lines.
// Non-CUE errors are wrapped with the file path.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrors := errors.Errors(err)
	if len(cueErrors) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	issues := make([]*ValidationError, 0, len(cueErrors))
	for _, e := range cueErrors {
		field := formatPath(errors.Path(e))
		msg := e.Error()
		if field != "" && strings.HasPrefix(msg, field) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, field), ":"))
		}
		issues = append(issues, &ValidationError{FilePath: filePath, Field: field, Message: msg})
	}

	if len(issues) == 1 {
		return issues[0]
	}

	lines := make([]string, 0, len(issues))
	for _, issue := range issues {
		if issue.Field != "" {
			lines = append(lines, issue.Field+": "+issue.Message)
		} else {
			lines = append(lines, issue.Message)
		}
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filePath, strings.Join(lines, "\n  "))
}

// formatPath converts ["dependencies", "1"] into "dependencies[1]".
func formatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			sb.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize returns an error when data exceeds maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}

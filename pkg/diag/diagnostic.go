// SPDX-License-Identifier: MPL-2.0

// Package diag defines the structured diagnostics produced while discovering,
// ordering and loading mods. Diagnostics are returned to callers rather than
// printed so the CLI and embedding applications keep a single rendering policy.
package diag

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// SeverityWarning indicates a recoverable issue; the load still succeeds.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a failure that marks the load as not fully successful.
	SeverityError Severity = "error"
)

// Machine-readable diagnostic codes.
const (
	CodeModsDirMissing     Code = "mods_dir_missing"
	CodeManifestInvalid    Code = "manifest_invalid"
	CodeArchiveCorrupt     Code = "archive_corrupt"
	CodeDuplicateModID     Code = "duplicate_mod_id"
	CodeOrderFileInvalid   Code = "order_file_invalid"
	CodeUnknownModInOrder  Code = "unknown_mod_in_order"
	CodeDuplicateInOrder   Code = "duplicate_in_order"
	CodeModNotInOrder      Code = "mod_not_in_order"
	CodeMissingDependency  Code = "missing_dependency"
	CodeCircularDependency Code = "circular_dependency"
	CodeDefinitionRead     Code = "definition_read_failed"
	CodeDefinitionParse    Code = "definition_parse_failed"
	CodeDefinitionMissedID Code = "definition_missing_id"
	CodeUnknownOperation   Code = "definition_unknown_operation"
	CodeTypeNotInferred    Code = "definition_type_not_inferred"
	CodeUndeclaredType     Code = "definition_type_undeclared"
	CodeMergeTargetMissing Code = "merge_target_missing"
	CodeRegisterFailed     Code = "definition_register_failed"
	CodeEnumerateFailed    Code = "enumerate_failed"
	CodeVersionInvalid     Code = "version_invalid"
)

type (
	// Severity represents diagnostic severity.
	Severity string

	// Code identifies a diagnostic kind.
	Code string

	// Diagnostic is a single structured issue.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "missing_dependency").
		Code Code
		// Message is the human-readable description.
		Message string
		// ModID is the mod the diagnostic is about (optional).
		ModID string
		// Path is the file or source path associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}

	// List accumulates diagnostics in the order they were produced.
	List struct {
		items []Diagnostic
	}
)

// Errorf builds an error-severity diagnostic.
func Errorf(code Code, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warning-severity diagnostic.
func Warnf(code Code, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithMod returns a copy of d attributed to modID.
func (d Diagnostic) WithMod(modID string) Diagnostic {
	d.ModID = modID
	return d
}

// WithPath returns a copy of d attributed to path.
func (d Diagnostic) WithPath(path string) Diagnostic {
	d.Path = path
	return d
}

// WithCause returns a copy of d carrying err.
func (d Diagnostic) WithCause(err error) Diagnostic {
	d.Cause = err
	return d
}

// IsError reports whether the diagnostic has error severity.
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

// String renders the diagnostic on a single line.
func (d Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s]", d.Severity, d.Code)
	if d.ModID != "" {
		fmt.Fprintf(&sb, " mod=%s", d.ModID)
	}
	if d.Path != "" {
		fmt.Fprintf(&sb, " path=%s", d.Path)
	}
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	if d.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(d.Cause.Error())
	}
	return sb.String()
}

// Add appends diagnostics to the list.
func (l *List) Add(ds ...Diagnostic) {
	l.items = append(l.items, ds...)
}

// Items returns a copy of the accumulated diagnostics.
func (l *List) Items() []Diagnostic {
	out := make([]Diagnostic, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of diagnostics.
func (l *List) Len() int {
	return len(l.items)
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (l *List) HasErrors() bool {
	return HasErrors(l.items)
}

// HasErrors reports whether ds contains an error-severity diagnostic.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Filter returns the diagnostics matching code.
func Filter(ds []Diagnostic, code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range ds {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Merge returns the diagnostics of extra not already present in base,
// followed by base. A diagnostic is present when base holds one with the
// same code, mod and path. For the codes in global, any base diagnostic with
// that code is a match.
func Merge(extra, base []Diagnostic, global ...Code) []Diagnostic {
	type key struct {
		code Code
		mod  string
		path string
	}
	seen := make(map[key]bool, len(base))
	codes := make(map[Code]bool, len(base))
	for _, d := range base {
		seen[key{d.Code, d.ModID, d.Path}] = true
		codes[d.Code] = true
	}

	out := make([]Diagnostic, 0, len(extra)+len(base))
	for _, d := range extra {
		if seen[key{d.Code, d.ModID, d.Path}] || (codes[d.Code] && slices.Contains(global, d.Code)) {
			continue
		}
		out = append(out, d)
	}
	return append(out, base...)
}

// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatError(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		t.Parallel()

		if err := FormatError(nil, "mod.json"); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("non-CUE error is wrapped with filepath", func(t *testing.T) {
		t.Parallel()

		original := errors.New("boom")
		err := FormatError(original, "mod.json")
		if err == nil {
			t.Fatal("expected error")
		}
		if !errors.Is(err, original) {
			t.Errorf("expected wrapped original error, got %v", err)
		}
		if !strings.Contains(err.Error(), "mod.json") {
			t.Errorf("error should contain filepath, got: %v", err)
		}
	})
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     []string
		expected string
	}{
		{name: "empty path", path: nil, expected: ""},
		{name: "single element", path: []string{"id"}, expected: "id"},
		{name: "nested path", path: []string{"customTypes", "Quest"}, expected: "customTypes.Quest"},
		{name: "array index", path: []string{"dependencies", "1"}, expected: "dependencies[1]"},
		{name: "leading numeric element", path: []string{"0", "id"}, expected: "0.id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := formatPath(tt.path); got != tt.expected {
				t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := CheckFileSize(make([]byte, 100), 100, "a.json"); err != nil {
		t.Errorf("data at exact limit: expected nil, got %v", err)
	}

	err := CheckFileSize(make([]byte, 101), 100, "a.json")
	if err == nil {
		t.Fatal("expected error for oversized data")
	}
	for _, want := range []string{"a.json", "101", "100"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should contain %q", err, want)
		}
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	withField := &ValidationError{FilePath: "mod.json", Field: "priority", Message: "conflicting values"}
	if got, want := withField.Error(), "mod.json: priority: conflicting values"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	withoutField := &ValidationError{FilePath: "mod.json", Message: "syntax error"}
	if got, want := withoutField.Error(), "mod.json: syntax error"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

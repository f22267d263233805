// SPDX-License-Identifier: MPL-2.0

package modmanifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("full manifest", func(t *testing.T) {
		t.Parallel()

		data := []byte(`{
			"id": "pokemon-emerald",
			"name": "Pokemon Emerald",
			"version": "1.0.0",
			"priority": 5,
			"dependencies": ["core"],
			"customTypes": {"Quest": {"directory": "Content/Quests", "description": "quest lines"}},
			"tileWidth": 16,
			"tileHeight": 16,
			"homepage": "https://example.com"
		}`)
		m, err := Parse(data, "mod.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.ID != "pokemon-emerald" || m.Priority != 5 || m.Version != "1.0.0" {
			t.Errorf("unexpected manifest: %+v", m)
		}
		if !m.DependsOn("core") {
			t.Error("expected dependency on core")
		}
		if !m.DeclaresCustomTypes() || !m.HasCustomType("Quest") {
			t.Error("expected Quest custom type")
		}
		if got := m.CustomTypes["Quest"].Directory; got != "Content/Quests" {
			t.Errorf("custom type directory = %q", got)
		}
		size, ok := m.TileSize()
		if !ok || size.Width != 16 || size.Height != 16 {
			t.Errorf("TileSize() = %+v, %v", size, ok)
		}
		if m.Location != "mod.json" {
			t.Errorf("Location = %q", m.Location)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		m, err := Parse([]byte(`{"id": "core"}`), "mod.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.Priority != 0 {
			t.Errorf("Priority = %d, want 0", m.Priority)
		}
		if len(m.Dependencies) != 0 {
			t.Errorf("Dependencies = %v, want empty", m.Dependencies)
		}
		if _, ok := m.TileSize(); ok {
			t.Error("expected no tile size")
		}
		if m.DisplayName() != "core" {
			t.Errorf("DisplayName() = %q", m.DisplayName())
		}
	})

	invalid := []struct {
		name string
		data string
	}{
		{name: "missing id", data: `{"name": "x"}`},
		{name: "empty id", data: `{"id": ""}`},
		{name: "priority not int", data: `{"id": "a", "priority": "high"}`},
		{name: "dependencies not list", data: `{"id": "a", "dependencies": "core"}`},
		{name: "empty dependency", data: `{"id": "a", "dependencies": [""]}`},
		{name: "malformed", data: `{"id": "a",`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Parse([]byte(tt.data), "mod.json"); err == nil {
				t.Errorf("expected error for %s", tt.data)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ManifestFileName)
	if err := os.WriteFile(path, []byte(`{"id": "core"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Location != path {
		t.Errorf("Location = %q, want %q", m.Location, path)
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestParseLoadOrder(t *testing.T) {
	t.Parallel()

	t.Run("object form", func(t *testing.T) {
		t.Parallel()

		lo, err := ParseLoadOrder([]byte(`{"order": ["core", "addon"]}`), LoadOrderFileName)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(lo.Order, []string{"core", "addon"}) {
			t.Errorf("Order = %v", lo.Order)
		}
		if lo.Core() != "core" || !lo.Contains("addon") || lo.Contains("other") {
			t.Errorf("unexpected lookups on %v", lo.Order)
		}
	})

	t.Run("array form", func(t *testing.T) {
		t.Parallel()

		lo, err := ParseLoadOrder([]byte(` ["core"] `), LoadOrderFileName)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lo.Core() != "core" {
			t.Errorf("Core() = %q", lo.Core())
		}
	})

	t.Run("empty list", func(t *testing.T) {
		t.Parallel()

		_, err := ParseLoadOrder([]byte(`{"order": []}`), LoadOrderFileName)
		if !errors.Is(err, ErrEmptyLoadOrder) {
			t.Errorf("expected ErrEmptyLoadOrder, got %v", err)
		}
	})

	t.Run("wrong element type", func(t *testing.T) {
		t.Parallel()

		_, err := ParseLoadOrder([]byte(`{"order": [1]}`), LoadOrderFileName)
		if err == nil || !strings.Contains(err.Error(), LoadOrderFileName) {
			t.Errorf("expected error naming the file, got %v", err)
		}
	})

	t.Run("nil receiver", func(t *testing.T) {
		t.Parallel()

		var lo *LoadOrder
		if lo.Core() != "" || lo.Contains("core") {
			t.Error("nil load order should be empty")
		}
	})
}

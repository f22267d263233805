// SPDX-License-Identifier: MPL-2.0

package modmanifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/modkit/modkit/pkg/cueutil"
)

const (
	// ManifestFileName is the manifest file expected at the root of every mod.
	ManifestFileName = "mod.json"
	// LoadOrderFileName is the optional load order manifest at the root of the mods directory.
	LoadOrderFileName = "mod_order.json"
)

var (
	//go:embed manifest_schema.cue
	schema []byte

	// ErrEmptyLoadOrder is returned when a load order manifest lists no mods.
	ErrEmptyLoadOrder = errors.New("load order lists no mods")
)

type (
	// CustomType declares a definition type contributed by a mod.
	CustomType struct {
		// Directory is a path prefix (relative to the mod root) whose files are of this type.
		Directory string `json:"directory,omitempty"`
		// Description documents the type for mod authors.
		Description string `json:"description,omitempty"`
	}

	// TileSize is the optional tile dimension hint carried by a manifest.
	TileSize struct {
		Width  int
		Height int
	}

	// Manifest is the parsed content of a mod's mod.json.
	Manifest struct {
		// ID uniquely identifies the mod.
		ID string `json:"id"`
		// Name is the human-readable mod name.
		Name string `json:"name,omitempty"`
		// Version is the mod version, expected to be semantic (e.g., "1.2.0").
		Version string `json:"version,omitempty"`
		// Description summarizes the mod.
		Description string `json:"description,omitempty"`
		// Author names the mod author.
		Author string `json:"author,omitempty"`
		// Priority orders mods without an explicit load order; lower loads earlier.
		Priority int `json:"priority"`
		// Dependencies lists mod IDs that must load before this mod.
		Dependencies []string `json:"dependencies"`
		// CustomTypes declares definition types introduced by the mod.
		CustomTypes map[string]CustomType `json:"customTypes,omitempty"`
		// TileWidth and TileHeight are optional tile size hints.
		TileWidth  int `json:"tileWidth,omitempty"`
		TileHeight int `json:"tileHeight,omitempty"`

		// Location is where the manifest was read from (not part of the JSON).
		Location string `json:"-"`
	}
)

// Parse validates and decodes a mod.json document.
// filename is only used in error messages.
func Parse(data []byte, filename string) (*Manifest, error) {
	res, err := cueutil.DecodeJSON[Manifest](schema, data, "#Manifest", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	m := res.Value
	m.Location = filename
	return m, nil
}

// ParseFile reads and parses a manifest from disk.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data, path)
}

// DisplayName returns Name, falling back to ID.
func (m *Manifest) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// DependsOn reports whether id is a direct dependency.
func (m *Manifest) DependsOn(id string) bool {
	return slices.Contains(m.Dependencies, id)
}

// DeclaresCustomTypes reports whether the manifest declares a fixed set of custom types.
func (m *Manifest) DeclaresCustomTypes() bool {
	return len(m.CustomTypes) > 0
}

// HasCustomType reports whether name is a declared custom type.
func (m *Manifest) HasCustomType(name string) bool {
	_, ok := m.CustomTypes[name]
	return ok
}

// CustomTypeNames returns the declared custom type names in sorted order.
func (m *Manifest) CustomTypeNames() []string {
	names := make([]string, 0, len(m.CustomTypes))
	for name := range m.CustomTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TileSize returns the tile size hint when both dimensions are set.
func (m *Manifest) TileSize() (TileSize, bool) {
	if m.TileWidth <= 0 || m.TileHeight <= 0 {
		return TileSize{}, false
	}
	return TileSize{Width: m.TileWidth, Height: m.TileHeight}, true
}

// SPDX-License-Identifier: MPL-2.0

package typeinfer

import (
	"sort"
	"strings"

	"github.com/modkit/modkit/pkg/definition"
)

// DefinitionsRoot is the directory holding definition files in a mod.
const DefinitionsRoot = "Definitions"

type (
	// PathPrefix maps well-known directories to built-in types.
	PathPrefix struct{}

	// DirectoryConvention derives the type from the first directory under
	// Definitions/, singularized.
	DirectoryConvention struct{}

	// ExplicitField reads the $type field of the document.
	ExplicitField struct{}

	// CustomTypes matches the directories declared in the manifest's customTypes.
	CustomTypes struct{}

	prefixRule struct {
		prefix string
		typ    string
	}
)

// prefixRules is sorted longest prefix first so the most specific rule wins.
var prefixRules = sortRules([]prefixRule{
	{"Definitions/Maps/Regions", "Map"},
	{"Definitions/Maps/Tilesets", "Tileset"},
	{"Definitions/Maps/Sections", "MapSection"},
	{"Definitions/Maps/Popups/Backgrounds", "PopupBackground"},
	{"Definitions/Maps/Popups/Outlines", "PopupOutline"},
	{"Definitions/Maps/Popups/Themes", "PopupTheme"},
	{"Definitions/Audio", "Audio"},
	{"Definitions/BattleScenes", "BattleScene"},
	{"Definitions/Sprites", "Sprite"},
	{"Definitions/TextWindow", "TextWindow"},
	{"Definitions/Weather", "Weather"},
	{"Definitions/Regions", "Region"},
	{"Definitions/Worlds", "World"},
})

var builtinTypes = func() map[string]struct{} {
	m := make(map[string]struct{}, len(prefixRules))
	for _, r := range prefixRules {
		m[r.typ] = struct{}{}
	}
	return m
}()

func sortRules(rules []prefixRule) []prefixRule {
	sort.SliceStable(rules, func(i, j int) bool { return len(rules[i].prefix) > len(rules[j].prefix) })
	return rules
}

// IsBuiltin reports whether t is produced by the path prefix rules.
func IsBuiltin(t string) bool {
	_, ok := builtinTypes[t]
	return ok
}

// BuiltinTypes returns the built-in type names, sorted.
func BuiltinTypes() []string {
	out := make([]string, 0, len(builtinTypes))
	for t := range builtinTypes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// hasDirPrefix reports whether p lies under dir.
func hasDirPrefix(p, dir string) bool {
	return strings.HasPrefix(p, dir+"/")
}

// Name implements Strategy.
func (PathPrefix) Name() string { return "path-prefix" }

// NeedsDocument implements Strategy.
func (PathPrefix) NeedsDocument() bool { return false }

// Infer implements Strategy.
func (PathPrefix) Infer(ctx *Context) string {
	for _, r := range prefixRules {
		if hasDirPrefix(ctx.Path, r.prefix) {
			return r.typ
		}
	}
	return ""
}

// Name implements Strategy.
func (DirectoryConvention) Name() string { return "directory-convention" }

// NeedsDocument implements Strategy.
func (DirectoryConvention) NeedsDocument() bool { return false }

// Infer implements Strategy.
func (DirectoryConvention) Infer(ctx *Context) string {
	if !hasDirPrefix(ctx.Path, DefinitionsRoot) {
		return ""
	}
	rest := ctx.Path[len(DefinitionsRoot)+1:]
	dir, _, found := strings.Cut(rest, "/")
	if !found || dir == "" {
		return ""
	}
	return Singularize(dir)
}

// Singularize turns a plural directory name into a type name:
// "Abilities" -> "Ability", "Items" -> "Item". Names ending in "ss" or "us"
// are kept as they are.
func Singularize(name string) string {
	switch {
	case strings.HasSuffix(name, "ies") && len(name) > 3:
		return name[:len(name)-3] + "y"
	case strings.HasSuffix(name, "ss"), strings.HasSuffix(name, "us"):
		return name
	case strings.HasSuffix(name, "s") && len(name) > 1:
		return name[:len(name)-1]
	default:
		return name
	}
}

// Name implements Strategy.
func (ExplicitField) Name() string { return "explicit-field" }

// NeedsDocument implements Strategy.
func (ExplicitField) NeedsDocument() bool { return true }

// Infer implements Strategy.
func (ExplicitField) Infer(ctx *Context) string {
	t, _ := ctx.Document[definition.KeyType].(string)
	return strings.TrimSpace(t)
}

// Name implements Strategy.
func (CustomTypes) Name() string { return "custom-types" }

// NeedsDocument implements Strategy.
func (CustomTypes) NeedsDocument() bool { return false }

// Infer implements Strategy. The longest matching directory wins; ties are
// broken by type name.
func (CustomTypes) Infer(ctx *Context) string {
	if ctx.Manifest == nil {
		return ""
	}
	best, bestLen := "", -1
	for _, name := range ctx.Manifest.CustomTypeNames() {
		dir := strings.Trim(strings.ReplaceAll(ctx.Manifest.CustomTypes[name].Directory, "\\", "/"), "/")
		if dir == "" || !hasDirPrefix(ctx.Path, dir) {
			continue
		}
		if len(dir) > bestLen {
			best, bestLen = name, len(dir)
		}
	}
	return best
}

// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	ModsDirNotFoundId Id = iota + 1
	CoreModMissingId
	ManifestInvalidId
	ArchiveCorruptId
	LoadOrderInvalidId
	DependencyCycleId
	DefinitionLoadFailedId
	ConfigLoadFailedId
	PackFailedId
)

type (
	// Id identifies a catalog issue.
	Id int

	// MarkdownMsg is the Markdown body of an issue.
	MarkdownMsg string

	// HttpLink is a reference link shown below an issue.
	HttpLink string

	// Issue is a catalog entry with remediation guidance.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the issue to the terminal using the glamour style at stylePath
// (a built-in style name such as "dark" or "notty" works too).
func (i *Issue) Render(stylePath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(sb.String(), stylePath)
}

var (
	render = glamour.Render

	modsDirNotFoundIssue = &Issue{
		id: ModsDirNotFoundId,
		mdMsg: `
# Mods directory not found!

modkit scans a single directory for mods. Each mod is either a folder with a
` + "`mod.json`" + ` at its root or a ` + "`.modpak`" + ` archive.

## Things you can try:
- Point modkit at the right directory:
~~~
$ modkit load --mods-dir ./Mods
~~~
- Set ` + "`mods_dir`" + ` in your ` + "`modkit.cue`" + ` configuration file`,
	}

	coreModMissingIssue = &Issue{
		id: CoreModMissingId,
		mdMsg: `
# Core mod not found!

The core mod always loads first. Its ID is the first entry of
` + "`mod_order.json`" + `, or the configured ` + "`core_mod`" + ` when there is no order file.

## Things you can try:
- Check that a mod with that ID exists in the mods directory:
~~~
$ modkit list
~~~
- Fix the first entry of ` + "`mod_order.json`" + `
- Set ` + "`core_mod`" + ` in ` + "`modkit.cue`",
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Invalid mod manifest!

Every mod needs a ` + "`mod.json`" + ` with a string ` + "`id`" + `.

## Example:
~~~json
{
  "id": "my-addon",
  "name": "My Addon",
  "version": "1.0.0",
  "priority": 10,
  "dependencies": ["core"]
}
~~~`,
	}

	archiveCorruptIssue = &Issue{
		id: ArchiveCorruptId,
		mdMsg: `
# Corrupt mod archive!

The archive failed its integrity check and was skipped. This usually means
the file was truncated while copying or was not produced by ` + "`modkit pack`" + `.

## Things you can try:
- Inspect the archive table of contents:
~~~
$ modkit inspect Mods/addon.modpak
~~~
- Rebuild it from the mod directory:
~~~
$ modkit pack ./addon
~~~`,
	}

	loadOrderInvalidIssue = &Issue{
		id: LoadOrderInvalidId,
		mdMsg: `
# Invalid load order!

` + "`mod_order.json`" + ` must be a JSON array of mod IDs or an object with an
` + "`order`" + ` array. The first entry is the core mod.

## Example:
~~~json
{"order": ["core", "music", "my-addon"]}
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Circular mod dependency!

Two or more mods depend on each other, so no order satisfies all of them.
The mods still load, but one dependency edge of the cycle is ignored.

## Things you can try:
- Remove one of the ` + "`dependencies`" + ` entries that closes the cycle
- List the mods explicitly in ` + "`mod_order.json`",
	}

	definitionLoadFailedIssue = &Issue{
		id: DefinitionLoadFailedId,
		mdMsg: `
# Some definitions failed to load!

Each failing file was skipped; everything else loaded.

## Common causes:
- The file is not a JSON object or has no string ` + "`id`" + `
- ` + "`$operation`" + ` is not one of create, modify, extend or replace
- The file sits outside ` + "`Definitions/`" + ` and has no ` + "`$type`",
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Check ` + "`modkit.cue`" + ` for CUE syntax errors
- Compare it with the defaults:
~~~
$ modkit config show
~~~`,
	}

	packFailedIssue = &Issue{
		id: PackFailedId,
		mdMsg: `
# Failed to pack mod!

## Things you can try:
- Make sure the directory contains a valid ` + "`mod.json`" + `
- Check that the output location is writable`,
	}

	issues = map[Id]*Issue{
		modsDirNotFoundIssue.Id():      modsDirNotFoundIssue,
		coreModMissingIssue.Id():       coreModMissingIssue,
		manifestInvalidIssue.Id():      manifestInvalidIssue,
		archiveCorruptIssue.Id():       archiveCorruptIssue,
		loadOrderInvalidIssue.Id():     loadOrderInvalidIssue,
		dependencyCycleIssue.Id():      dependencyCycleIssue,
		definitionLoadFailedIssue.Id(): definitionLoadFailedIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		packFailedIssue.Id():           packFailedIssue,
	}
)

// Values returns every catalog issue sorted by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

// Get returns the issue for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

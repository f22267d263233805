// SPDX-License-Identifier: MPL-2.0

package validator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/modkit/modkit/internal/discovery"
	"github.com/modkit/modkit/internal/testutil"
	"github.com/modkit/modkit/pkg/diag"
	"github.com/modkit/modkit/pkg/modarchive"
)

func discover(t *testing.T, modsDir string) []discovery.Mod {
	t.Helper()
	res := discovery.New(modsDir).Discover()
	t.Cleanup(func() { _ = discovery.CloseAll(res.Mods) })
	return res.Mods
}

func countCodes(ds []diag.Diagnostic) map[diag.Code]int {
	out := map[diag.Code]int{}
	for _, d := range ds {
		out[d.Code]++
	}
	return out
}

func TestValidate_Clean(t *testing.T) {
	t.Parallel()

	modsDir := t.TempDir()
	testutil.WriteTree(t, modsDir, testutil.Files{
		"core/mod.json":                      `{"id": "core", "version": "1.2.0"}`,
		"core/Definitions/Weather/rain.json": `{"id": "rain"}`,
		"addon/mod.json":                     `{"id": "addon", "version": "v0.1.0", "dependencies": ["core"]}`,
	})

	rep, err := New(WithJobs(2)).Validate(context.Background(), discover(t, modsDir))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !rep.Valid() || len(rep.Diagnostics) != 0 {
		t.Errorf("diagnostics = %v, want none", rep.Diagnostics)
	}
	if rep.Checked != 2 || rep.Files != 1 {
		t.Errorf("Checked=%d Files=%d, want 2 1", rep.Checked, rep.Files)
	}
}

func TestValidate_Findings(t *testing.T) {
	t.Parallel()

	modsDir := t.TempDir()
	testutil.WriteTree(t, modsDir, testutil.Files{
		"core/mod.json":                      `{"id": "core", "version": "one"}`,
		"core/Definitions/Weather/noid.json": `{"name": "x"}`,
		"core/Definitions/Weather/bad.json":  `{`,
		"core/Definitions/Weather/op.json":   `{"id": "a", "$operation": "merge"}`,
		"core/Drafts/skip.json":              `{`,
		"a/mod.json":                         `{"id": "a", "dependencies": ["b", "ghost"]}`,
		"b/mod.json":                         `{"id": "b", "dependencies": ["a"]}`,
	})

	rep, err := New(WithIgnore("Drafts/**")).Validate(context.Background(), discover(t, modsDir))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	want := map[diag.Code]int{
		diag.CodeVersionInvalid:     1,
		diag.CodeDefinitionMissedID: 1,
		diag.CodeDefinitionParse:    1,
		diag.CodeUnknownOperation:   1,
		diag.CodeMissingDependency:  1,
		diag.CodeCircularDependency: 1,
	}
	got := countCodes(rep.Diagnostics)
	for code, n := range want {
		if got[code] != n {
			t.Errorf("%s: got %d, want %d (all: %v)", code, got[code], n, rep.Diagnostics)
		}
	}
	if rep.Valid() {
		t.Error("report should be invalid")
	}
	for _, d := range diag.Filter(rep.Diagnostics, diag.CodeVersionInvalid) {
		if d.IsError() {
			t.Error("version check must only warn")
		}
	}
}

func TestValidate_CorruptArchivePayload(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "pak")
	testutil.WriteTree(t, src, testutil.Files{
		"mod.json":                      `{"id": "pak"}`,
		"Definitions/Sprites/hero.json": `{"id": "hero", "frames": [1, 2, 3, 4, 5, 6, 7, 8]}`,
	})
	modsDir := t.TempDir()
	archive := filepath.Join(modsDir, "pak"+modarchive.Ext)
	if _, err := modarchive.Pack(src, archive); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	r, err := modarchive.Open(archive)
	if err != nil {
		t.Fatal(err)
	}
	e, ok, err := r.Lookup("Definitions/Sprites/hero.json")
	_ = r.Close()
	if err != nil || !ok {
		t.Fatalf("Lookup: %v %v", ok, err)
	}

	// Flip bytes inside the compressed payload; the TOC stays valid.
	testutil.FlipBytes(t, archive, int64(e.DataOffset), int64(e.CompressedSize))

	mods := discover(t, modsDir)
	if len(mods) != 1 {
		t.Fatalf("discovered %d mods, want 1", len(mods))
	}
	rep, err := New().Validate(context.Background(), mods)
	if err != nil {
		t.Fatal(err)
	}
	if got := countCodes(rep.Diagnostics)[diag.CodeArchiveCorrupt]; got != 1 {
		t.Errorf("archive_corrupt count = %d, want 1: %v", got, rep.Diagnostics)
	}
}

func TestValidate_Canceled(t *testing.T) {
	t.Parallel()

	modsDir := t.TempDir()
	testutil.WriteTree(t, modsDir, testutil.Files{"core/mod.json": `{"id": "core"}`})
	mods := discover(t, modsDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Validate(ctx, mods); err == nil {
		t.Error("Validate() expected cancellation error")
	}
}

func TestValidate_Empty(t *testing.T) {
	t.Parallel()

	rep, err := New().Validate(context.Background(), nil)
	if err != nil || !rep.Valid() || rep.Checked != 0 {
		t.Errorf("Validate(nil) = %+v, %v", rep, err)
	}
}

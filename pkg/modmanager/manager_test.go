// SPDX-License-Identifier: MPL-2.0

package modmanager

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/modkit/modkit/internal/testutil"
	"github.com/modkit/modkit/pkg/diag"
	"github.com/modkit/modkit/pkg/registry"
)

type weather struct {
	ID        string   `json:"id"`
	Intensity int      `json:"intensity"`
	Sounds    []string `json:"sounds"`
}

func sampleMods(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, testutil.Files{
		"core/mod.json":                       `{"id": "core", "version": "1.0.0"}`,
		"core/Definitions/Weather/rain.json":  `{"id": "rain", "intensity": 1, "sounds": ["drip"]}`,
		"core/Definitions/Weather/snow.json":  `{"id": "snow", "intensity": 2}`,
		"core/Graphics/rain.png":              "png",
		"storm/mod.json":                      `{"id": "storm", "version": "0.2.0", "dependencies": ["core"]}`,
		"storm/Definitions/Weather/rain.json": `{"id": "rain", "$operation": "extend", "sounds": ["thunder"], "intensity": 3}`,
		"storm/Definitions/Sprites/bolt.json": `{"id": "bolt"}`,
	})
	return dir
}

func newManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	m := New(opts)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManager_QueryAPI(t *testing.T) {
	t.Parallel()

	m := newManager(t, Options{ModsDir: sampleMods(t)})
	if m.CoreMod() != nil || m.LoadedMods() != nil {
		t.Error("queries before Load should be empty")
	}

	var events int
	m.Subscribe(ListenerFunc(func(DefinitionDiscovered) { events++ }))

	res, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !res.Success || res.Validation != nil {
		t.Fatalf("Load() = %+v", res)
	}
	if events != 4 {
		t.Errorf("events = %d, want 4", events)
	}

	if got := m.CoreMod(); got == nil || got.ID != "core" {
		t.Errorf("CoreMod() = %v", got)
	}
	var ids []string
	for _, mod := range m.LoadedMods() {
		ids = append(ids, mod.ID)
	}
	if !reflect.DeepEqual(ids, []string{"core", "storm"}) {
		t.Errorf("LoadedMods() = %v", ids)
	}

	rain, err := DefinitionData[weather](m, "rain")
	if err != nil {
		t.Fatalf("DefinitionData() error = %v", err)
	}
	want := weather{ID: "rain", Intensity: 3, Sounds: []string{"drip", "thunder"}}
	if !reflect.DeepEqual(*rain, want) {
		t.Errorf("rain = %+v, want %+v", *rain, want)
	}

	var snow weather
	if err := m.DecodeDefinition("snow", &snow); err != nil || snow.Intensity != 2 {
		t.Errorf("DecodeDefinition(snow) = %+v, %v", snow, err)
	}
	if err := m.DecodeDefinition("hail", &snow); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("DecodeDefinition(hail) error = %v, want ErrNotFound", err)
	}

	if got := m.IDsByType("Weather"); !reflect.DeepEqual(got, []string{"rain", "snow"}) {
		t.Errorf("IDsByType(Weather) = %v", got)
	}
	if got := m.Types(); !reflect.DeepEqual(got, []string{"Sprite", "Weather"}) {
		t.Errorf("Types() = %v", got)
	}
	if !m.HasDefinition("bolt") || m.HasDefinition("hail") {
		t.Error("HasDefinition mismatch")
	}

	if mod, ok := m.ModForDefinition("rain"); !ok || mod.ID != "core" {
		t.Errorf("ModForDefinition(rain) = %v, %v; want core", mod, ok)
	}
	if mod, ok := m.ModForDefinition("bolt"); !ok || mod.ID != "storm" {
		t.Errorf("ModForDefinition(bolt) = %v, %v; want storm", mod, ok)
	}
	if _, ok := m.ModForDefinition("hail"); ok {
		t.Error("ModForDefinition(hail) should fail")
	}

	data, err := m.ReadModFile("core", "Graphics/rain.png")
	if err != nil || string(data) != "png" {
		t.Errorf("ReadModFile() = %q, %v", data, err)
	}
	if _, err := m.ReadModFile("ghost", "x"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("ReadModFile(ghost) error = %v, want ErrNotLoaded", err)
	}
}

func TestManager_ValidateAndSnapshot(t *testing.T) {
	t.Parallel()

	dir := sampleMods(t)
	testutil.WriteTree(t, dir, testutil.Files{
		"storm/Definitions/Sprites/broken.json": `{"no": "id"}`,
	})
	snap := filepath.Join(t.TempDir(), "cache", "registry.msgpack")

	m := newManager(t, Options{ModsDir: dir, Validate: true, Jobs: 2, SnapshotPath: snap})
	res, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Validation == nil || res.Validation.Checked != 2 {
		t.Fatalf("Validation = %+v", res.Validation)
	}
	if res.Success {
		t.Error("broken definition should fail the load")
	}
	// Found by both the validator and the loader, reported once.
	if got := len(diag.Filter(res.Diagnostics, diag.CodeDefinitionMissedID)); got != 1 {
		t.Errorf("missing id diagnostics = %d, want 1", got)
	}
	if got := len(res.Validation.Diagnostics); got != 1 {
		t.Errorf("validation diagnostics = %d, want 1", got)
	}
	if _, err := os.Stat(snap); !errors.Is(err, os.ErrNotExist) {
		t.Error("snapshot must only be written after a successful load")
	}

	var buf bytes.Buffer
	if err := m.WriteSnapshot(&buf); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	restored, err := registry.ReadSnapshot(&buf)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if restored.Len() != m.Registry().Len() || !restored.IsLocked() {
		t.Errorf("restored %d definitions (locked=%v), want %d", restored.Len(), restored.IsLocked(), m.Registry().Len())
	}
}

func TestManager_ValidateReportsCycleOnce(t *testing.T) {
	t.Parallel()

	dir := testutil.TempTree(t, testutil.Files{
		"core/mod.json":                `{"id": "core"}`,
		"a/mod.json":                   `{"id": "a", "dependencies": ["b"]}`,
		"b/mod.json":                   `{"id": "b", "dependencies": ["a"]}`,
		"c/mod.json":                   `{"id": "c", "version": "not-semver"}`,
		"c/Definitions/Weather/i.json": `{"id": "i"}`,
	})

	m := newManager(t, Options{ModsDir: dir, Validate: true})
	res, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Success {
		t.Error("a dependency cycle should fail the load")
	}
	if got := len(diag.Filter(res.Diagnostics, diag.CodeCircularDependency)); got != 1 {
		t.Errorf("circular dependency diagnostics = %d, want 1: %v", got, res.Diagnostics)
	}
	if got := len(diag.Filter(res.Diagnostics, diag.CodeVersionInvalid)); got != 1 {
		t.Errorf("version diagnostics = %d, want 1", got)
	}
	if !m.HasDefinition("i") {
		t.Error("mods outside the cycle should still load")
	}
}

func TestManager_LargeIntegersSurvive(t *testing.T) {
	t.Parallel()

	dir := testutil.TempTree(t, testutil.Files{
		"core/mod.json":                  `{"id": "core"}`,
		"core/Definitions/Worlds/i.json": `{"id": "i", "seed": 9007199254740993}`,
	})
	snap := filepath.Join(t.TempDir(), "registry.msgpack")

	m := newManager(t, Options{ModsDir: dir, SnapshotPath: snap})
	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	type world struct {
		Seed int64 `json:"seed"`
	}
	w, err := DefinitionData[world](m, "i")
	if err != nil {
		t.Fatalf("DefinitionData() error = %v", err)
	}
	if w.Seed != 9007199254740993 {
		t.Errorf("seed = %d, want 9007199254740993", w.Seed)
	}

	f, err := os.Open(snap)
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	defer f.Close()
	restored, err := registry.ReadSnapshot(f)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	var back world
	if err := restored.Decode("i", &back); err != nil || back.Seed != 9007199254740993 {
		t.Errorf("restored seed = %d, %v", back.Seed, err)
	}
}

func TestManager_SnapshotFile(t *testing.T) {
	t.Parallel()

	snap := filepath.Join(t.TempDir(), "registry.msgpack")
	m := newManager(t, Options{ModsDir: sampleMods(t), SnapshotPath: snap})
	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	f, err := os.Open(snap)
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	defer f.Close()
	restored, err := registry.ReadSnapshot(f)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if !restored.Has("rain") || !restored.Has("bolt") {
		t.Errorf("restored IDs = %v", restored.IDs())
	}
}

func TestManager_WriteSnapshotBeforeLoad(t *testing.T) {
	t.Parallel()

	m := newManager(t, Options{ModsDir: t.TempDir()})
	if err := m.WriteSnapshot(&bytes.Buffer{}); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("WriteSnapshot() error = %v, want ErrNotLoaded", err)
	}
}

func TestManager_FatalLoad(t *testing.T) {
	t.Parallel()

	m := newManager(t, Options{ModsDir: t.TempDir(), CoreMod: "core"})
	res, err := m.Load(context.Background())
	if err == nil {
		t.Fatal("Load() expected error for an empty mods directory")
	}
	if res == nil || res.Success {
		t.Errorf("result = %+v, want unsuccessful", res)
	}
	if m.CoreMod() != nil {
		t.Error("CoreMod() should stay nil after a fatal load")
	}
}

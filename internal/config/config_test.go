// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/modkit/modkit/internal/issue"
	"github.com/modkit/modkit/internal/testutil"
)

func isolated(t *testing.T) LoadOptions {
	t.Helper()
	return LoadOptions{WorkDir: t.TempDir(), ConfigDirPath: t.TempDir()}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := Load(context.Background(), isolated(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	want := DefaultConfig()
	if cfg.ModsDir != want.ModsDir || cfg.OrderFile != want.OrderFile || cfg.ManifestFile != want.ManifestFile {
		t.Errorf("cfg = %+v, want defaults %+v", cfg, want)
	}
	if cfg.GlobCacheSize != want.GlobCacheSize {
		t.Errorf("GlobCacheSize = %d, want %d", cfg.GlobCacheSize, want.GlobCacheSize)
	}
	if cfg.LogLevel() != log.InfoLevel {
		t.Errorf("LogLevel() = %v, want info", cfg.LogLevel())
	}
}

func TestLoad_FileLookupOrder(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	testutil.WriteFile(t, filepath.Join(opts.ConfigDirPath, "modkit.cue"), `mods_dir: "FromConfigDir"`)

	cfg, path, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ModsDir != "FromConfigDir" {
		t.Errorf("ModsDir = %q, want FromConfigDir", cfg.ModsDir)
	}
	if !strings.HasPrefix(path, opts.ConfigDirPath) {
		t.Errorf("path = %q, want under config dir", path)
	}

	testutil.WriteFile(t, filepath.Join(opts.WorkDir, "modkit.cue"), `mods_dir: "FromWorkDir"`)
	cfg, _, err = Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ModsDir != "FromWorkDir" {
		t.Errorf("ModsDir = %q, want FromWorkDir (work dir wins)", cfg.ModsDir)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	explicit := filepath.Join(t.TempDir(), "custom.cue")
	testutil.WriteFile(t, explicit, `
mods_dir:   "Game/Mods"
core_mod:   "base"
ignore:     ["**/*.bak.json", "Drafts/**"]
validate:   true
log: level: "debug"
`)
	testutil.WriteFile(t, filepath.Join(opts.WorkDir, "modkit.cue"), `mods_dir: "Ignored"`)
	opts.ConfigFilePath = explicit

	cfg, path, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != explicit {
		t.Errorf("path = %q, want %q", path, explicit)
	}
	if cfg.ModsDir != "Game/Mods" || cfg.CoreMod != "base" || !cfg.Validate {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Ignore) != 2 || cfg.Ignore[1] != "Drafts/**" {
		t.Errorf("Ignore = %v", cfg.Ignore)
	}
	if cfg.LogLevel() != log.DebugLevel {
		t.Errorf("LogLevel() = %v, want debug", cfg.LogLevel())
	}
	// Unset keys keep their defaults.
	if cfg.ArchiveExt != DefaultConfig().ArchiveExt {
		t.Errorf("ArchiveExt = %q, want default", cfg.ArchiveExt)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	opts.ConfigFilePath = filepath.Join(t.TempDir(), "nope.cue")

	_, _, err := Load(context.Background(), opts)
	if err == nil {
		t.Fatal("Load() expected error")
	}
	if got := issue.IssueOf(err); got == nil || got.Id() != issue.ConfigLoadFailedId {
		t.Errorf("IssueOf() = %v, want ConfigLoadFailedId", got)
	}
}

func TestLoad_InvalidFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"syntax error", `mods_dir: "unterminated`},
		{"wrong type", `validate: "yes"`},
		{"unknown field", `colour: "blue"`},
		{"bad level", `log: level: "loud"`},
		{"bad archive ext", `archive_ext: "zip"`},
		{"zero cache", `glob_cache_size: 0`},
		{"malformed ignore", `ignore: ["[unclosed"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := isolated(t)
			opts.ConfigFilePath = filepath.Join(t.TempDir(), "modkit.cue")
			testutil.WriteFile(t, opts.ConfigFilePath, tt.content)

			_, _, err := Load(context.Background(), opts)
			if err == nil {
				t.Fatal("Load() expected error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error %T is not actionable: %v", err, err)
			}
			if !ae.HasSuggestions() {
				t.Error("expected suggestions on config error")
			}
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MODKIT_MODS_DIR", "EnvMods")
	t.Setenv("MODKIT_LOG_LEVEL", "warn")

	opts := isolated(t)
	testutil.WriteFile(t, filepath.Join(opts.WorkDir, "modkit.cue"), `mods_dir: "FileMods"`)

	cfg, _, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ModsDir != "EnvMods" {
		t.Errorf("ModsDir = %q, want EnvMods", cfg.ModsDir)
	}
	if cfg.LogLevel() != log.WarnLevel {
		t.Errorf("LogLevel() = %v, want warn", cfg.LogLevel())
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Load(ctx, isolated(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Ignore = []string{"**/*.tmp.json"}
	cfg.CoreMod = "vanilla"

	opts := isolated(t)
	opts.ConfigFilePath = filepath.Join(t.TempDir(), "modkit.cue")
	testutil.WriteFile(t, opts.ConfigFilePath, GenerateCUE(cfg))

	got, _, err := Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load(GenerateCUE()) error = %v", err)
	}
	if got.CoreMod != "vanilla" || len(got.Ignore) != 1 || got.Ignore[0] != "**/*.tmp.json" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sub", "modkit.cue")
	created, err := WriteDefault(path)
	if err != nil || !created {
		t.Fatalf("WriteDefault() = %v, %v", created, err)
	}
	created, err = WriteDefault(path)
	if err != nil || created {
		t.Errorf("second WriteDefault() = %v, %v, want false, nil", created, err)
	}
}

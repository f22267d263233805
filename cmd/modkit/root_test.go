// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modkit/modkit/internal/config"
	"github.com/modkit/modkit/internal/testutil"
	"github.com/modkit/modkit/pkg/modarchive"
)

func sampleMods(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, testutil.Files{
		"core/mod.json":                       `{"id": "core", "name": "Core", "version": "1.0.0"}`,
		"core/Definitions/Weather/rain.json":  `{"id": "rain", "intensity": 1, "sounds": ["drip"]}`,
		"storm/mod.json":                      `{"id": "storm", "dependencies": ["core"]}`,
		"storm/Definitions/Weather/rain.json": `{"id": "rain", "$operation": "extend", "sounds": ["thunder"]}`,
	})
	return dir
}

type run struct {
	stdout, stderr string
	err            error
}

func execute(t *testing.T, modsDir string, args ...string) run {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ModsDir = modsDir

	var stdout, stderr bytes.Buffer
	app := NewApp(Dependencies{
		Config: config.NewStaticProvider(cfg),
		Stdout: &stdout,
		Stderr: &stderr,
	})
	root := NewRootCommand(app)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return run{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestLoadCommand(t *testing.T) {
	t.Parallel()

	r := execute(t, sampleMods(t), "load")
	if r.err != nil {
		t.Fatalf("load error = %v\nstderr: %s", r.err, r.stderr)
	}
	for _, want := range []string{"core", "storm", "Weather", "Load complete"} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, r.stdout)
		}
	}
	if strings.Index(r.stdout, "core") > strings.Index(r.stdout, "storm") {
		t.Error("core must be listed before storm")
	}
}

func TestLoadCommand_ErrorsExitNonZero(t *testing.T) {
	t.Parallel()

	dir := sampleMods(t)
	testutil.WriteTree(t, dir, testutil.Files{"storm/Definitions/Weather/bad.json": `{"id": 3}`})

	r := execute(t, dir, "load")
	if exitCode(r.err) != 1 {
		t.Fatalf("exit code = %d (%v), want 1", exitCode(r.err), r.err)
	}
	if !strings.Contains(r.stderr, "definition_missing_id") {
		t.Errorf("stderr missing diagnostic code:\n%s", r.stderr)
	}
}

func TestLoadCommand_MissingCore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, testutil.Files{"addon/mod.json": `{"id": "addon"}`})

	r := execute(t, dir, "load")
	if exitCode(r.err) != 1 {
		t.Fatalf("exit code = %d, want 1", exitCode(r.err))
	}
	if msg := r.err.Error(); !strings.Contains(msg, "resolve load order") || !strings.Contains(msg, "core") {
		t.Errorf("error = %q", msg)
	}
}

func TestShowCommand(t *testing.T) {
	t.Parallel()

	dir := sampleMods(t)

	r := execute(t, dir, "show", "rain")
	if r.err != nil {
		t.Fatalf("show error = %v", r.err)
	}
	if !strings.Contains(r.stdout, `"thunder"`) || !strings.Contains(r.stdout, `"intensity": 1`) {
		t.Errorf("json output:\n%s", r.stdout)
	}

	r = execute(t, dir, "show", "rain", "--format", "toml")
	if r.err != nil {
		t.Fatalf("show --format toml error = %v", r.err)
	}
	if !strings.Contains(r.stdout, "intensity = 1") || !strings.Contains(r.stdout, "sounds = [") {
		t.Errorf("toml output:\n%s", r.stdout)
	}

	r = execute(t, dir, "show", "hail")
	if exitCode(r.err) != 1 {
		t.Errorf("show hail exit code = %d, want 1", exitCode(r.err))
	}

	r = execute(t, dir, "show", "rain", "--format", "yaml")
	if r.err == nil {
		t.Error("unsupported format should fail")
	}
}

func TestListAndOrderCommands(t *testing.T) {
	t.Parallel()

	dir := sampleMods(t)

	r := execute(t, dir, "list", "--type", "Weather")
	if r.err != nil {
		t.Fatalf("list error = %v", r.err)
	}
	if !strings.Contains(r.stdout, "rain") || !strings.Contains(r.stdout, "extend") {
		t.Errorf("list output:\n%s", r.stdout)
	}

	r = execute(t, dir, "order")
	if r.err != nil {
		t.Fatalf("order error = %v", r.err)
	}
	if !strings.Contains(r.stdout, "implicit") || !strings.Contains(r.stdout, "[core]") {
		t.Errorf("order output:\n%s", r.stdout)
	}
}

func TestPackInspectUnpack(t *testing.T) {
	t.Parallel()

	dir := sampleMods(t)
	archive := filepath.Join(t.TempDir(), "storm"+modarchive.Ext)

	r := execute(t, dir, "pack", filepath.Join(dir, "storm"), "--output", archive)
	if r.err != nil {
		t.Fatalf("pack error = %v", r.err)
	}

	r = execute(t, dir, "inspect", archive, "--verify")
	if r.err != nil {
		t.Fatalf("inspect error = %v", r.err)
	}
	for _, want := range []string{"storm", "Definitions/Weather/rain.json", "Payload verified"} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("inspect output missing %q:\n%s", want, r.stdout)
		}
	}

	dest := filepath.Join(t.TempDir(), "out")
	r = execute(t, dir, "unpack", archive, "--dest", dest)
	if r.err != nil {
		t.Fatalf("unpack error = %v", r.err)
	}
	if _, err := os.Stat(filepath.Join(dest, "mod.json")); err != nil {
		t.Errorf("mod.json not extracted: %v", err)
	}
}

func TestVerifyCommand(t *testing.T) {
	t.Parallel()

	r := execute(t, sampleMods(t), "verify")
	if r.err != nil {
		t.Fatalf("verify error = %v\n%s", r.err, r.stderr)
	}
	if !strings.Contains(r.stdout, "Checked 2 mod(s)") {
		t.Errorf("verify output:\n%s", r.stdout)
	}
}

func TestConfigShow(t *testing.T) {
	t.Parallel()

	r := execute(t, "SomeMods", "config", "show")
	if r.err != nil {
		t.Fatalf("config show error = %v", r.err)
	}
	if !strings.Contains(r.stdout, `mods_dir:        "SomeMods"`) || !strings.Contains(r.stdout, "// source: defaults") {
		t.Errorf("config show output:\n%s", r.stdout)
	}
}

func TestModsDirFlagOverridesConfig(t *testing.T) {
	t.Parallel()

	r := execute(t, "Ignored", "--mods-dir", sampleMods(t), "load")
	if r.err != nil {
		t.Fatalf("load error = %v", r.err)
	}
}

// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteTree(t *testing.T) {
	t.Parallel()

	root := TempTree(t, Files{
		"a/b/c.json": `{"id": "c"}`,
		"top.txt":    "top",
	})

	data, err := os.ReadFile(filepath.Join(root, "a", "b", "c.json"))
	if err != nil || string(data) != `{"id": "c"}` {
		t.Errorf("c.json = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(root, "top.txt")); err != nil {
		t.Errorf("top.txt missing: %v", err)
	}
}

func TestFlipBytes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f.bin")
	WriteFile(t, path, "\x00\x01\x02\x03")
	FlipBytes(t, path, 1, 2)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "\x00\xfe\xfd\x03"; string(data) != want {
		t.Errorf("data = %q, want %q", data, want)
	}
}

// SPDX-License-Identifier: MPL-2.0

package modarchive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/modkit/modkit/pkg/modmanifest"
)

// Pack writes the mod directory at modDir into a new archive.
// When outputPath is empty the archive is created next to modDir and named
// after the manifest ID. Returns the absolute path of the created archive.
func Pack(modDir, outputPath string) (archivePath string, err error) {
	absDir, err := filepath.Abs(modDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve mod directory: %w", err)
	}
	manifest, err := modmanifest.ParseFile(filepath.Join(absDir, modmanifest.ManifestFileName))
	if err != nil {
		return "", fmt.Errorf("invalid mod: %w", err)
	}

	if outputPath == "" {
		outputPath = filepath.Join(filepath.Dir(absDir), manifest.ID+Ext)
	}
	absOutput, err := filepath.Abs(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output path: %w", err)
	}

	f, err := os.Create(absOutput)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(absOutput)
		}
	}()

	w, err := NewWriter(f)
	if err != nil {
		return "", err
	}

	walkErr := filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != absDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if path == absOutput || strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(absDir, path)
		if relErr != nil {
			return fmt.Errorf("failed to get relative path: %w", relErr)
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("failed to read %s: %w", path, readErr)
		}
		return w.Add(filepath.ToSlash(rel), data)
	})
	if walkErr != nil {
		return "", fmt.Errorf("failed to pack mod: %w", walkErr)
	}

	if err := w.Close(); err != nil {
		return "", err
	}
	return absOutput, nil
}

// Unpack extracts the archive at archivePath into destDir. When destDir is
// empty the archive name without its extension is used. Returns the absolute
// destination directory.
func Unpack(archivePath, destDir string) (extractedPath string, err error) {
	r, err := Open(archivePath)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if destDir == "" {
		destDir = strings.TrimSuffix(filepath.Base(archivePath), Ext)
	}
	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve destination: %w", err)
	}

	entries, err := r.Entries()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		target := filepath.Join(absDest, filepath.FromSlash(e.Path))
		if !isWithin(absDest, target) {
			return "", fmt.Errorf("%w: %s escapes destination", ErrInvalidPath, e.Path)
		}
		data, readErr := r.readEntry(e)
		if readErr != nil {
			return "", readErr
		}
		if mkErr := os.MkdirAll(filepath.Dir(target), 0o755); mkErr != nil {
			return "", fmt.Errorf("failed to create directory: %w", mkErr)
		}
		if writeErr := os.WriteFile(target, data, 0o644); writeErr != nil {
			return "", fmt.Errorf("failed to write %s: %w", target, writeErr)
		}
	}
	return absDest, nil
}

func isWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

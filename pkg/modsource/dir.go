// SPDX-License-Identifier: MPL-2.0

package modsource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/modkit/modkit/pkg/modmanifest"
)

// DirSource reads a mod from a directory tree.
type DirSource struct {
	root         string
	manifestFile string
	glob         *globMatcher

	mu       sync.Mutex
	manifest *modmanifest.Manifest
	mErr     error
	mLoaded  bool
}

// NewDirSource returns a source rooted at dir.
func NewDirSource(dir string, opts ...Option) (*DirSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mod directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat mod directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrUnsupportedSource, abs)
	}
	o := applyOptions(opts)
	return &DirSource{root: abs, manifestFile: o.manifestFile, glob: newGlobMatcher(o.globCacheSize)}, nil
}

// ModID implements Source.
func (s *DirSource) ModID() (string, error) {
	m, err := s.Manifest()
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

// Manifest implements Source. Parse failures are cached as well.
func (s *DirSource) Manifest() (*modmanifest.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mLoaded {
		s.manifest, s.mErr = modmanifest.ParseFile(filepath.Join(s.root, s.manifestFile))
		s.mLoaded = true
	}
	return s.manifest, s.mErr
}

// ReadBytes implements Source.
func (s *DirSource) ReadBytes(name string) ([]byte, error) {
	full, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.root, err)
	}
	return data, nil
}

// ReadText implements Source.
func (s *DirSource) ReadText(name string) (string, error) {
	data, err := s.ReadBytes(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Exists implements Source.
func (s *DirSource) Exists(name string) bool {
	full, err := s.resolve(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

// EnumerateFiles implements Source.
func (s *DirSource) EnumerateFiles(pattern string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != s.root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.root, err)
		}
		return nil, fmt.Errorf("failed to enumerate %s: %w", s.root, err)
	}
	return s.glob.filter(files, pattern, recursive)
}

// Location implements Source.
func (s *DirSource) Location() string {
	return s.root
}

// Kind implements Source.
func (s *DirSource) Kind() Kind {
	return KindDirectory
}

// Close implements Source. Directory sources hold no handles.
func (s *DirSource) Close() error {
	return nil
}

func (s *DirSource) resolve(name string) (string, error) {
	rel, err := normalize(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

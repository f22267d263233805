// SPDX-License-Identifier: MPL-2.0

package modsource

import (
	"fmt"
	"sync"

	"github.com/modkit/modkit/pkg/modarchive"
	"github.com/modkit/modkit/pkg/modmanifest"
)

// ArchiveSource reads a mod from a .modpak archive.
//
// The TOC is parsed lazily by the underlying reader; the manifest is parsed
// once under mu. All methods are safe for concurrent use.
type ArchiveSource struct {
	path         string
	manifestFile string
	reader       *modarchive.Reader
	glob         *globMatcher

	mu       sync.Mutex
	manifest *modmanifest.Manifest
	mErr     error
	mLoaded  bool
}

// OpenArchive opens the archive at path without parsing its TOC.
func OpenArchive(path string, opts ...Option) (*ArchiveSource, error) {
	r, err := modarchive.Open(path)
	if err != nil {
		return nil, err
	}
	return NewArchiveSource(r, opts...), nil
}

// NewArchiveSource wraps an already opened reader. The source takes
// ownership of r and closes it on Close.
func NewArchiveSource(r *modarchive.Reader, opts ...Option) *ArchiveSource {
	o := applyOptions(opts)
	return &ArchiveSource{
		path:         r.Name(),
		manifestFile: o.manifestFile,
		reader:       r,
		glob:         newGlobMatcher(o.globCacheSize),
	}
}

// Validate forces the TOC parse and returns the first integrity error.
func (s *ArchiveSource) Validate() error {
	return s.reader.Validate()
}

// Verify decompresses every entry.
func (s *ArchiveSource) Verify() error {
	return s.reader.Verify()
}

// Reader exposes the underlying archive reader.
func (s *ArchiveSource) Reader() *modarchive.Reader {
	return s.reader
}

// ModID implements Source.
func (s *ArchiveSource) ModID() (string, error) {
	m, err := s.Manifest()
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

// Manifest implements Source.
func (s *ArchiveSource) Manifest() (*modmanifest.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mLoaded {
		s.manifest, s.mErr = s.loadManifest()
		s.mLoaded = true
	}
	return s.manifest, s.mErr
}

func (s *ArchiveSource) loadManifest() (*modmanifest.Manifest, error) {
	data, err := s.reader.ReadFile(s.manifestFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return modmanifest.Parse(data, s.path+"!"+s.manifestFile)
}

// ReadBytes implements Source.
func (s *ArchiveSource) ReadBytes(name string) ([]byte, error) {
	rel, err := normalize(name)
	if err != nil {
		return nil, err
	}
	return s.reader.ReadFile(rel)
}

// ReadText implements Source.
func (s *ArchiveSource) ReadText(name string) (string, error) {
	data, err := s.ReadBytes(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Exists implements Source.
func (s *ArchiveSource) Exists(name string) bool {
	rel, err := normalize(name)
	if err != nil {
		return false
	}
	_, ok, err := s.reader.Lookup(rel)
	return err == nil && ok
}

// EnumerateFiles implements Source.
func (s *ArchiveSource) EnumerateFiles(pattern string, recursive bool) ([]string, error) {
	entries, err := s.reader.Entries()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return s.glob.filter(paths, pattern, recursive)
}

// Location implements Source.
func (s *ArchiveSource) Location() string {
	return s.path
}

// Kind implements Source.
func (s *ArchiveSource) Kind() Kind {
	return KindArchive
}

// Close implements Source.
func (s *ArchiveSource) Close() error {
	return s.reader.Close()
}

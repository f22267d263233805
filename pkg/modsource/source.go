// SPDX-License-Identifier: MPL-2.0

package modsource

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/modkit/modkit/pkg/modarchive"
	"github.com/modkit/modkit/pkg/modmanifest"
)

const (
	// KindDirectory is a mod backed by a directory tree.
	KindDirectory Kind = "directory"
	// KindArchive is a mod backed by a .modpak archive.
	KindArchive Kind = "archive"

	// DefaultGlobCacheSize is the number of compiled patterns kept per source.
	DefaultGlobCacheSize = 64
)

var (
	// ErrInvalidPath is returned for empty paths and paths escaping the mod root.
	ErrInvalidPath = errors.New("invalid mod path")
	// ErrNotFound is returned when a file does not exist in the source.
	ErrNotFound = os.ErrNotExist
	// ErrUnsupportedSource is returned by Open for paths that are neither a
	// directory nor an archive.
	ErrUnsupportedSource = errors.New("unsupported mod source")
)

type (
	// Kind identifies the storage backend of a Source.
	Kind string

	// Source is read access to one mod's files.
	//
	// Paths are relative to the mod root and use forward slashes.
	Source interface {
		// ModID returns the ID declared by the mod's manifest.
		ModID() (string, error)
		// Manifest returns the parsed manifest, cached after the first call.
		Manifest() (*modmanifest.Manifest, error)
		// ReadBytes returns the content of path.
		ReadBytes(path string) ([]byte, error)
		// ReadText returns the content of path as a string.
		ReadText(path string) (string, error)
		// Exists reports whether path is a file in the source.
		Exists(path string) bool
		// EnumerateFiles lists files whose name matches pattern, sorted.
		// When recursive is false only files at the root are returned.
		EnumerateFiles(pattern string, recursive bool) ([]string, error)
		// Location returns the directory or archive path backing the source.
		Location() string
		// Kind returns the storage backend.
		Kind() Kind
		// Close releases any open file handles.
		Close() error
	}

	// Option configures a Source.
	Option func(*options)

	options struct {
		globCacheSize int
		manifestFile  string
	}
)

// WithGlobCacheSize sets the number of compiled glob patterns cached per source.
func WithGlobCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.globCacheSize = n
		}
	}
}

// WithManifestFile overrides the manifest file name (default mod.json).
func WithManifestFile(name string) Option {
	return func(o *options) {
		if name != "" {
			o.manifestFile = name
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{globCacheSize: DefaultGlobCacheSize, manifestFile: modmanifest.ManifestFileName}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open returns the Source for path: a directory becomes a DirSource and a
// regular file with the archive extension becomes an ArchiveSource.
func Open(path string, opts ...Option) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat mod source: %w", err)
	}
	if info.IsDir() {
		return NewDirSource(path, opts...)
	}
	if info.Mode().IsRegular() && strings.EqualFold(extOf(path), modarchive.Ext) {
		return OpenArchive(path, opts...)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, path)
}

// IsArchivePath reports whether path carries the archive extension.
func IsArchivePath(path string) bool {
	return strings.EqualFold(extOf(path), modarchive.Ext)
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 && !strings.ContainsAny(path[i:], `/\`) {
		return path[i:]
	}
	return ""
}

// normalize converts p to a clean, root-relative, forward-slash path.
func normalize(p string) (string, error) {
	n, err := modarchive.NormalizePath(p)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return n, nil
}

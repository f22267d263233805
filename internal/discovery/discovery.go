// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/modkit/modkit/pkg/diag"
	"github.com/modkit/modkit/pkg/modarchive"
	"github.com/modkit/modkit/pkg/modmanifest"
	"github.com/modkit/modkit/pkg/modsource"
)

type (
	// Option configures a Discovery.
	Option func(*Discovery)

	// Discovery scans a mods directory.
	Discovery struct {
		modsDir       string
		manifestFile  string
		orderFile     string
		archiveExt    string
		globCacheSize int
		logger        *log.Logger
	}

	// Mod is a successfully opened mod source with its manifest.
	Mod struct {
		Source   modsource.Source
		Manifest *modmanifest.Manifest
	}

	// Result bundles the discovered mods with the diagnostics produced on the way.
	Result struct {
		// Mods are the usable sources in discovery (name) order.
		Mods []Mod
		// Diagnostics lists every dropped source and other discovery issues.
		Diagnostics []diag.Diagnostic
	}
)

// WithManifestFile sets the per-mod manifest file name.
func WithManifestFile(name string) Option {
	return func(d *Discovery) {
		if name != "" {
			d.manifestFile = name
		}
	}
}

// WithOrderFile sets the load order file name, relative to the mods directory.
func WithOrderFile(name string) Option {
	return func(d *Discovery) {
		if name != "" {
			d.orderFile = name
		}
	}
}

// WithArchiveExt sets the extension identifying archive files.
func WithArchiveExt(ext string) Option {
	return func(d *Discovery) {
		if ext != "" {
			d.archiveExt = ext
		}
	}
}

// WithGlobCacheSize sets the glob cache size of every opened source.
func WithGlobCacheSize(n int) Option {
	return func(d *Discovery) {
		if n > 0 {
			d.globCacheSize = n
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(d *Discovery) {
		if l != nil {
			d.logger = l
		}
	}
}

// New returns a Discovery for modsDir.
func New(modsDir string, opts ...Option) *Discovery {
	d := &Discovery{
		modsDir:       modsDir,
		manifestFile:  modmanifest.ManifestFileName,
		orderFile:     modmanifest.LoadOrderFileName,
		archiveExt:    modarchive.Ext,
		globCacheSize: modsource.DefaultGlobCacheSize,
		logger:        log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ModsDir returns the scanned directory.
func (d *Discovery) ModsDir() string {
	return d.modsDir
}

// Discover opens every mod under the mods directory. A missing mods
// directory yields an empty result with a mods_dir_missing error.
func (d *Discovery) Discover() *Result {
	res := &Result{}

	entries, err := os.ReadDir(d.modsDir)
	if err != nil {
		code := diag.CodeModsDirMissing
		msg := "mods directory %s does not exist"
		if !errors.Is(err, fs.ErrNotExist) {
			msg = "mods directory %s cannot be read"
		}
		res.Diagnostics = append(res.Diagnostics, diag.Errorf(code, msg, d.modsDir).WithPath(d.modsDir).WithCause(err))
		return res
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	seen := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(d.modsDir, name)

		src, ok := d.open(path, entry, res)
		if !ok {
			continue
		}

		manifest, err := src.Manifest()
		if err != nil {
			d.drop(src, res, diag.Errorf(diag.CodeManifestInvalid, "invalid manifest in %s", name).WithPath(path).WithCause(err))
			continue
		}
		if first, dup := seen[manifest.ID]; dup {
			d.drop(src, res, diag.Errorf(diag.CodeDuplicateModID, "mod %q in %s is already provided by %s", manifest.ID, name, first).
				WithMod(manifest.ID).WithPath(path))
			continue
		}
		seen[manifest.ID] = name

		d.logger.Debug("discovered mod", "id", manifest.ID, "kind", src.Kind(), "path", path)
		res.Mods = append(res.Mods, Mod{Source: src, Manifest: manifest})
	}
	return res
}

// open returns a source for path when it looks like a mod.
func (d *Discovery) open(path string, entry fs.DirEntry, res *Result) (modsource.Source, bool) {
	opts := []modsource.Option{
		modsource.WithGlobCacheSize(d.globCacheSize),
		modsource.WithManifestFile(d.manifestFile),
	}

	switch {
	case entry.IsDir():
		if _, err := os.Stat(filepath.Join(path, d.manifestFile)); err != nil {
			d.logger.Debug("skipping directory without manifest", "path", path)
			return nil, false
		}
		src, err := modsource.NewDirSource(path, opts...)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, diag.Errorf(diag.CodeManifestInvalid, "cannot open mod directory %s", entry.Name()).WithPath(path).WithCause(err))
			return nil, false
		}
		return src, true

	case entry.Type().IsRegular() && strings.EqualFold(filepath.Ext(entry.Name()), d.archiveExt):
		src, err := modsource.OpenArchive(path, opts...)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, diag.Errorf(diag.CodeArchiveCorrupt, "cannot open archive %s", entry.Name()).WithPath(path).WithCause(err))
			return nil, false
		}
		if err := src.Validate(); err != nil {
			d.drop(src, res, diag.Errorf(diag.CodeArchiveCorrupt, "archive %s failed integrity check", entry.Name()).WithPath(path).WithCause(err))
			return nil, false
		}
		return src, true

	default:
		return nil, false
	}
}

func (d *Discovery) drop(src modsource.Source, res *Result, dg diag.Diagnostic) {
	d.logger.Warn("dropping mod source", "path", src.Location(), "code", dg.Code, "error", dg.Cause)
	if err := src.Close(); err != nil {
		d.logger.Debug("failed to close dropped source", "path", src.Location(), "error", err)
	}
	res.Diagnostics = append(res.Diagnostics, dg)
}

// ReadLoadOrder reads the load order manifest. A missing file returns
// (nil, nil); an unreadable or invalid file returns nil with an
// order_file_invalid error so loading falls back to implicit ordering.
func (d *Discovery) ReadLoadOrder() (*modmanifest.LoadOrder, []diag.Diagnostic) {
	path := filepath.Join(d.modsDir, d.orderFile)
	lo, err := modmanifest.ReadLoadOrderFile(path)
	if err == nil {
		return lo, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return nil, []diag.Diagnostic{
		diag.Errorf(diag.CodeOrderFileInvalid, "load order file %s is invalid; using implicit order", d.orderFile).
			WithPath(path).WithCause(err),
	}
}

// CloseAll closes every source in mods and returns the joined errors.
func CloseAll(mods []Mod) error {
	var errs []error
	for _, m := range mods {
		if err := m.Source.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

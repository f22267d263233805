// SPDX-License-Identifier: MPL-2.0

// Package modmanager is the entry point for embedding modkit: it validates
// and loads a mods directory and answers queries over the merged result.
package modmanager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/modkit/modkit/internal/discovery"
	"github.com/modkit/modkit/internal/loader"
	"github.com/modkit/modkit/internal/validator"
	"github.com/modkit/modkit/pkg/diag"
	"github.com/modkit/modkit/pkg/modmanifest"
	"github.com/modkit/modkit/pkg/registry"
)

// ErrNotLoaded is returned by operations that need a completed Load.
var ErrNotLoaded = errors.New("mods not loaded")

type (
	// DefinitionDiscovered is published for every registered definition.
	DefinitionDiscovered = loader.DefinitionDiscovered
	// Listener receives DefinitionDiscovered notifications.
	Listener = loader.Listener
	// ListenerFunc adapts a function to Listener.
	ListenerFunc = loader.ListenerFunc

	// Options configures a Manager. Zero values select the defaults.
	Options struct {
		// ModsDir is the directory holding mods (required).
		ModsDir string
		// OrderFile is the load order manifest name relative to ModsDir.
		OrderFile string
		// ManifestFile is the per-mod manifest name.
		ManifestFile string
		// CoreMod is the core mod ID used without a load order manifest.
		CoreMod string
		// ArchiveExt is the mod archive extension.
		ArchiveExt string
		// Ignore lists doublestar patterns of mod-relative paths to skip.
		Ignore []string
		// Validate runs the validator before loading.
		Validate bool
		// Jobs bounds validator concurrency.
		Jobs int
		// GlobCacheSize is the per-source compiled glob cache size.
		GlobCacheSize int
		// SnapshotPath, when set, receives a msgpack registry snapshot after
		// a successful load.
		SnapshotPath string
		// Logger receives progress logs (default: discarded).
		Logger *log.Logger
	}

	// Result is the outcome of Manager.Load.
	Result struct {
		loader.Result
		// Validation is the validator report, nil when validation is disabled.
		Validation *validator.Report
	}

	// Manager owns a loader and the sources it opened.
	Manager struct {
		opts   Options
		logger *log.Logger
		loader *loader.Loader

		mu     sync.RWMutex
		result *Result
	}
)

// New creates a Manager. Nothing is read until Load.
func New(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	m := &Manager{opts: opts, logger: logger}
	m.loader = loader.New(m.discovery(),
		loader.WithLogger(logger),
		loader.WithCoreMod(opts.CoreMod),
		loader.WithManifestFile(opts.ManifestFile),
		loader.WithIgnore(opts.Ignore...),
	)
	return m
}

func (m *Manager) discovery() *discovery.Discovery {
	return discovery.New(m.opts.ModsDir,
		discovery.WithManifestFile(m.opts.ManifestFile),
		discovery.WithOrderFile(m.opts.OrderFile),
		discovery.WithArchiveExt(m.opts.ArchiveExt),
		discovery.WithGlobCacheSize(m.opts.GlobCacheSize),
		discovery.WithLogger(m.logger),
	)
}

// Load validates (when enabled) and loads the mods directory. It may be
// called once. Validation findings the loader did not also report are
// included in the result and affect Success but never stop the load.
func (m *Manager) Load(ctx context.Context) (*Result, error) {
	res := &Result{}

	if m.opts.Validate {
		rep, err := m.validate(ctx)
		if err != nil {
			return nil, err
		}
		res.Validation = rep
	}

	lres, err := m.loader.Load()
	if lres != nil {
		res.Result = *lres
	}
	if res.Validation != nil {
		// The loader and the validator both report dependency cycles, and
		// each sees a cycle from a different mod.
		res.Diagnostics = diag.Merge(res.Validation.Diagnostics, res.Diagnostics, diag.CodeCircularDependency)
		res.Success = res.Success && !diag.HasErrors(res.Diagnostics)
	}
	if err != nil {
		return res, err
	}

	if m.opts.SnapshotPath != "" && res.Success {
		if err := m.writeSnapshotFile(m.opts.SnapshotPath); err != nil {
			return res, err
		}
	}

	m.mu.Lock()
	m.result = res
	m.mu.Unlock()
	return res, nil
}

// validate runs the validator over a separate discovery pass whose sources
// are closed before loading starts.
func (m *Manager) validate(ctx context.Context) (*validator.Report, error) {
	found := m.discovery().Discover()
	defer func() {
		if err := discovery.CloseAll(found.Mods); err != nil {
			m.logger.Debug("failed to close validation sources", "error", err)
		}
	}()

	v := validator.New(
		validator.WithJobs(m.opts.Jobs),
		validator.WithManifestFile(m.opts.ManifestFile),
		validator.WithIgnore(m.opts.Ignore...),
		validator.WithLogger(m.logger),
	)
	rep, err := v.Validate(ctx, found.Mods)
	if err != nil {
		return nil, fmt.Errorf("validate mods: %w", err)
	}
	return rep, nil
}

func (m *Manager) writeSnapshotFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := m.Registry().WriteSnapshot(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return f.Close()
}

// Subscribe registers a listener. Listeners added after Load see nothing.
func (m *Manager) Subscribe(l Listener) {
	m.loader.Subscribe(l)
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *registry.Registry {
	return m.loader.Registry()
}

// Definition returns the metadata of id.
func (m *Manager) Definition(id string) (*registry.Metadata, bool) {
	return m.Registry().Get(id)
}

// HasDefinition reports whether id is registered.
func (m *Manager) HasDefinition(id string) bool {
	return m.Registry().Has(id)
}

// DecodeDefinition decodes the data of id into out.
func (m *Manager) DecodeDefinition(id string, out any) error {
	return m.Registry().Decode(id, out)
}

// DefinitionData decodes the data of id into a new T.
func DefinitionData[T any](m *Manager, id string) (*T, error) {
	return registry.DecodeAs[T](m.Registry(), id)
}

// IDsByType returns the IDs of type t in registration order.
func (m *Manager) IDsByType(t string) []string {
	return m.Registry().IDsByType(t)
}

// Types returns every registered type, sorted.
func (m *Manager) Types() []string {
	return m.Registry().Types()
}

// LoadedMods returns the mods in load order, or nil before Load.
func (m *Manager) LoadedMods() []*modmanifest.Manifest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.result == nil {
		return nil
	}
	return append([]*modmanifest.Manifest(nil), m.result.Order...)
}

// CoreMod returns the core mod, or nil before Load.
func (m *Manager) CoreMod() *modmanifest.Manifest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.result == nil {
		return nil
	}
	return m.result.Core
}

// ModForDefinition returns the mod that first created id.
func (m *Manager) ModForDefinition(id string) (*modmanifest.Manifest, bool) {
	md, ok := m.Registry().Get(id)
	if !ok {
		return nil, false
	}
	mod, ok := m.loader.Mod(md.OriginalModID)
	if !ok {
		return nil, false
	}
	return mod.Manifest, true
}

// ReadModFile reads a file from a loaded mod, e.g. an asset referenced by a
// definition.
func (m *Manager) ReadModFile(modID, path string) ([]byte, error) {
	mod, ok := m.loader.Mod(modID)
	if !ok {
		return nil, fmt.Errorf("mod %q: %w", modID, ErrNotLoaded)
	}
	return mod.Source.ReadBytes(path)
}

// WriteSnapshot writes a msgpack snapshot of the registry to w.
func (m *Manager) WriteSnapshot(w io.Writer) error {
	if !m.Registry().IsLocked() {
		return ErrNotLoaded
	}
	return m.Registry().WriteSnapshot(w)
}

// Close releases every mod source.
func (m *Manager) Close() error {
	return m.loader.Close()
}

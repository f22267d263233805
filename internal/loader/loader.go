// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/modkit/modkit/internal/discovery"
	"github.com/modkit/modkit/internal/issue"
	"github.com/modkit/modkit/pkg/definition"
	"github.com/modkit/modkit/pkg/diag"
	"github.com/modkit/modkit/pkg/loadorder"
	"github.com/modkit/modkit/pkg/modmanifest"
	"github.com/modkit/modkit/pkg/registry"
	"github.com/modkit/modkit/pkg/typeinfer"
)

// DefinitionPattern selects definition files inside a mod.
const DefinitionPattern = "*.json"

var (
	// ErrAlreadyLoaded is returned when Load is called more than once.
	ErrAlreadyLoaded = errors.New("mods already loaded")
	// ErrClosed is returned by Load after Close.
	ErrClosed = errors.New("loader is closed")
)

type (
	// Option configures a Loader.
	Option func(*Loader)

	// Loader loads every discovered mod into a registry. It owns the
	// sources it opens until Close.
	Loader struct {
		disc         *discovery.Discovery
		registry     *registry.Registry
		chain        *typeinfer.Chain
		logger       *log.Logger
		coreMod      string
		manifestFile string
		ignore       []string
		listeners    []Listener

		mu     sync.Mutex
		loaded bool
		closed bool
		mods   []discovery.Mod
		byID   map[string]discovery.Mod
	}

	// Result summarizes a load.
	Result struct {
		// Success is false iff Diagnostics holds an error.
		Success bool
		// Core is the core mod; nil when the load failed before ordering.
		Core *modmanifest.Manifest
		// Order lists the mods in the order they were loaded.
		Order []*modmanifest.Manifest
		// Strategy is the ordering strategy used after the core mod.
		Strategy loadorder.Strategy
		// Diagnostics lists every warning and error in production order.
		Diagnostics []diag.Diagnostic
		// Loaded counts successfully registered definition files.
		Loaded int
	}
)

// WithRegistry sets the registry to fill (default: a new one).
func WithRegistry(r *registry.Registry) Option {
	return func(l *Loader) {
		if r != nil {
			l.registry = r
		}
	}
}

// WithChain overrides the type inference chain.
func WithChain(c *typeinfer.Chain) Option {
	return func(l *Loader) {
		if c != nil {
			l.chain = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg *log.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// WithCoreMod sets the core mod ID used when no load order manifest exists.
func WithCoreMod(id string) Option {
	return func(l *Loader) {
		if id != "" {
			l.coreMod = id
		}
	}
}

// WithManifestFile sets the manifest file name excluded from definitions.
func WithManifestFile(name string) Option {
	return func(l *Loader) {
		if name != "" {
			l.manifestFile = name
		}
	}
}

// WithIgnore sets doublestar patterns of mod-relative paths to skip.
func WithIgnore(patterns ...string) Option {
	return func(l *Loader) {
		l.ignore = append(l.ignore, patterns...)
	}
}

// WithListener registers a listener.
func WithListener(ls Listener) Option {
	return func(l *Loader) {
		if ls != nil {
			l.listeners = append(l.listeners, ls)
		}
	}
}

// New creates a loader reading mods found by disc.
func New(disc *discovery.Discovery, opts ...Option) *Loader {
	l := &Loader{
		disc:         disc,
		registry:     registry.New(),
		chain:        typeinfer.DefaultChain(),
		logger:       log.New(io.Discard),
		coreMod:      "core",
		manifestFile: modmanifest.ManifestFileName,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Registry returns the registry being filled.
func (l *Loader) Registry() *registry.Registry {
	return l.registry
}

// Subscribe registers a listener for subsequent loads.
func (l *Loader) Subscribe(ls Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, ls)
}

// Mod returns the discovered mod with the given ID.
func (l *Loader) Mod(id string) (discovery.Mod, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.byID[id]
	return m, ok
}

// Load runs the full pipeline once. The registry is locked on return even
// when the result is unsuccessful. A non-nil error means nothing was loaded.
func (l *Loader) Load() (*Result, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrClosed
	}
	if l.loaded {
		l.mu.Unlock()
		return nil, ErrAlreadyLoaded
	}
	l.loaded = true
	l.mu.Unlock()

	defer l.registry.Lock()

	var diags diag.List
	res := &Result{}

	found := l.disc.Discover()
	diags.Add(found.Diagnostics...)
	l.adopt(found.Mods)

	if missing := diag.Filter(found.Diagnostics, diag.CodeModsDirMissing); len(missing) > 0 {
		res.Diagnostics = diags.Items()
		return res, issue.NewErrorContext().
			WithOperation("discover mods").
			WithResource(l.disc.ModsDir()).
			WithIssue(issue.ModsDirNotFoundId).
			WithSuggestion("Create the directory or point --mods-dir at an existing one").
			Wrap(missing[0].Cause).
			BuildError()
	}

	lo, orderDiags := l.disc.ReadLoadOrder()
	diags.Add(orderDiags...)

	manifests := make([]*modmanifest.Manifest, len(found.Mods))
	for i, m := range found.Mods {
		manifests[i] = m.Manifest
	}

	core, rest, err := loadorder.SplitCore(lo, l.coreMod, manifests)
	if err != nil {
		res.Diagnostics = diags.Items()
		return res, issue.NewErrorContext().
			WithOperation("resolve load order").
			WithResource(l.disc.ModsDir()).
			WithIssue(issue.CoreModMissingId).
			WithSuggestion(fmt.Sprintf("Add a mod whose manifest declares the core id (looked for %q)", l.coreCandidate(lo))).
			WithSuggestion("Or list the core mod first in the load order manifest").
			Wrap(err).
			BuildError()
	}
	res.Core = core
	l.logger.Info("loading core mod", "id", core.ID)
	res.Loaded += l.loadMod(l.byID[core.ID], &diags)

	ordered := loadorder.ResolveRest(lo, core, rest)
	diags.Add(ordered.Diagnostics...)
	res.Order = ordered.Order
	res.Strategy = ordered.Strategy

	l.logger.Info("loading mods", "count", len(ordered.Order)-1, "strategy", ordered.Strategy)
	for _, m := range ordered.Order {
		if m.ID == core.ID {
			continue
		}
		res.Loaded += l.loadMod(l.byID[m.ID], &diags)
	}

	res.Diagnostics = diags.Items()
	res.Success = !diag.HasErrors(res.Diagnostics)
	l.logger.Info("load complete", "definitions", l.registry.Len(), "files", res.Loaded, "success", res.Success)
	return res, nil
}

func (l *Loader) coreCandidate(lo *modmanifest.LoadOrder) string {
	if lo != nil {
		return lo.Core()
	}
	return l.coreMod
}

func (l *Loader) adopt(mods []discovery.Mod) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mods = mods
	l.byID = make(map[string]discovery.Mod, len(mods))
	for _, m := range mods {
		l.byID[m.Manifest.ID] = m
	}
}

// loadMod loads every definition file of mod and returns how many were registered.
func (l *Loader) loadMod(mod discovery.Mod, diags *diag.List) int {
	id := mod.Manifest.ID
	files, err := mod.Source.EnumerateFiles(DefinitionPattern, true)
	if err != nil {
		diags.Add(diag.Errorf(diag.CodeEnumerateFailed, "cannot list files of mod %q", id).
			WithMod(id).WithPath(mod.Source.Location()).WithCause(err))
		return 0
	}

	loaded := 0
	for _, path := range files {
		if path == l.manifestFile || l.ignored(path) {
			continue
		}
		if l.loadFile(mod, path, diags) {
			loaded++
		}
	}
	l.logger.Debug("loaded mod", "id", id, "files", loaded)
	return loaded
}

func (l *Loader) ignored(path string) bool {
	for _, p := range l.ignore {
		// Patterns are validated by config; a malformed one never matches.
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// loadFile processes one definition file. It reports whether the
// definition was registered.
func (l *Loader) loadFile(mod discovery.Mod, path string, diags *diag.List) bool {
	modID := mod.Manifest.ID
	fail := func(d diag.Diagnostic) bool {
		d = d.WithMod(modID).WithPath(path)
		l.logger.Warn("skipping definition", "mod", modID, "path", path, "code", d.Code, "error", d.Cause)
		diags.Add(d)
		return false
	}

	data, err := mod.Source.ReadBytes(path)
	if err != nil {
		return fail(diag.Errorf(diag.CodeDefinitionRead, "cannot read definition file").WithCause(err))
	}
	obj, err := definition.DecodeObject(data)
	if err != nil {
		return fail(diag.Errorf(diag.CodeDefinitionParse, "definition file is not a JSON object").WithCause(err))
	}
	doc, err := definition.FromObject(obj)
	switch {
	case errors.Is(err, definition.ErrMissingID):
		return fail(diag.Errorf(diag.CodeDefinitionMissedID, "definition has no string id").WithCause(err))
	case errors.Is(err, definition.ErrUnknownOperation):
		return fail(diag.Errorf(diag.CodeUnknownOperation, "definition has an unknown operation").WithCause(err))
	case err != nil:
		return fail(diag.Errorf(diag.CodeDefinitionParse, "invalid definition").WithCause(err))
	}

	inferred, err := l.chain.Infer(
		&typeinfer.Context{Path: path, Manifest: mod.Manifest},
		func() (map[string]any, error) { return obj, nil },
	)
	if err != nil {
		return fail(diag.Errorf(diag.CodeTypeNotInferred, "cannot infer type of %q", doc.ID).WithCause(err))
	}
	if inferred.Warning != "" {
		diags.Add(diag.Warnf(diag.CodeUndeclaredType, "%s", inferred.Warning).WithMod(modID).WithPath(path))
	}

	if doc.Operation.IsMerge() && !l.registry.Has(doc.ID) {
		diags.Add(diag.Warnf(diag.CodeMergeTargetMissing, "%s of %q has no existing definition; treated as create", doc.Operation, doc.ID).
			WithMod(modID).WithPath(path))
	}

	md, err := l.registry.Register(definition.Definition{
		ID:         doc.ID,
		Type:       inferred.Type,
		Operation:  doc.Operation,
		ModID:      modID,
		SourcePath: path,
		Data:       doc.Data,
	})
	if err != nil {
		return fail(diag.Errorf(diag.CodeRegisterFailed, "cannot register %q", doc.ID).WithCause(err))
	}

	l.logger.Debug("registered definition", "id", md.ID, "type", md.DefinitionType, "op", md.Operation, "strategy", inferred.Strategy)
	l.notify(DefinitionDiscovered{
		ModID:          modID,
		DefinitionType: md.DefinitionType,
		DefinitionID:   md.ID,
		FilePath:       path,
		SourceModID:    md.OriginalModID,
		Operation:      md.Operation,
	})
	return true
}

func (l *Loader) notify(ev DefinitionDiscovered) {
	l.mu.Lock()
	listeners := append([]Listener(nil), l.listeners...)
	l.mu.Unlock()
	for _, ls := range listeners {
		ls.DefinitionDiscovered(ev)
	}
}

// Close releases every source opened by Load. It is safe to call more than once.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	err := discovery.CloseAll(l.mods)
	l.mods = nil
	l.byID = nil
	return err
}

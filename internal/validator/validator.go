// SPDX-License-Identifier: MPL-2.0

// Package validator runs structural checks over discovered mods without
// loading them into a registry.
package validator

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"

	"github.com/modkit/modkit/internal/dag"
	"github.com/modkit/modkit/internal/discovery"
	"github.com/modkit/modkit/pkg/definition"
	"github.com/modkit/modkit/pkg/diag"
	"github.com/modkit/modkit/pkg/modmanifest"
	"github.com/modkit/modkit/pkg/modsource"
)

type (
	// Option configures a Validator.
	Option func(*Validator)

	// Validator checks mods concurrently. It only reads sources.
	Validator struct {
		jobs         int
		manifestFile string
		ignore       []string
		logger       *log.Logger
	}

	// Report is the outcome of a validation run.
	Report struct {
		// Checked is the number of mods inspected.
		Checked int
		// Files is the number of definition files inspected.
		Files int
		// Diagnostics are grouped per mod in input order, followed by
		// global dependency checks.
		Diagnostics []diag.Diagnostic
	}

	modReport struct {
		files int
		diags []diag.Diagnostic
	}
)

// WithJobs bounds the number of mods checked at once (default GOMAXPROCS).
func WithJobs(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.jobs = n
		}
	}
}

// WithManifestFile sets the manifest file name excluded from definition checks.
func WithManifestFile(name string) Option {
	return func(v *Validator) {
		if name != "" {
			v.manifestFile = name
		}
	}
}

// WithIgnore sets doublestar patterns of mod-relative paths to skip.
func WithIgnore(patterns ...string) Option {
	return func(v *Validator) {
		v.ignore = append(v.ignore, patterns...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		jobs:         runtime.GOMAXPROCS(0),
		manifestFile: modmanifest.ManifestFileName,
		logger:       log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Valid reports whether the report holds no errors.
func (r *Report) Valid() bool {
	return !diag.HasErrors(r.Diagnostics)
}

// Validate checks every mod. The returned error is non-nil only when ctx is
// canceled; findings are reported as diagnostics.
func (v *Validator) Validate(ctx context.Context, mods []discovery.Mod) (*Report, error) {
	results := make([]modReport, len(mods))

	if len(mods) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(v.jobs, len(mods)))
		for i, m := range mods {
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				results[i] = v.checkMod(gctx, m)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	rep := &Report{Checked: len(mods)}
	for _, r := range results {
		rep.Files += r.files
		rep.Diagnostics = append(rep.Diagnostics, r.diags...)
	}
	rep.Diagnostics = append(rep.Diagnostics, checkDependencies(mods)...)
	v.logger.Debug("validation complete", "mods", rep.Checked, "files", rep.Files, "diagnostics", len(rep.Diagnostics))
	return rep, nil
}

func (v *Validator) checkMod(ctx context.Context, m discovery.Mod) modReport {
	var rep modReport
	id := m.Manifest.ID
	add := func(d diag.Diagnostic) {
		rep.diags = append(rep.diags, d.WithMod(id))
	}

	if src, ok := m.Source.(*modsource.ArchiveSource); ok {
		if err := src.Verify(); err != nil {
			add(diag.Errorf(diag.CodeArchiveCorrupt, "archive payload verification failed").
				WithPath(m.Source.Location()).WithCause(err))
			// Entry reads would fail the same way.
			return rep
		}
	}

	if ver := m.Manifest.Version; ver != "" && !semver.IsValid(canonicalVersion(ver)) {
		add(diag.Warnf(diag.CodeVersionInvalid, "version %q is not a semantic version", ver))
	}

	files, err := m.Source.EnumerateFiles("*.json", true)
	if err != nil {
		add(diag.Errorf(diag.CodeEnumerateFailed, "cannot list files").WithPath(m.Source.Location()).WithCause(err))
		return rep
	}
	for _, path := range files {
		if ctx.Err() != nil {
			return rep
		}
		if path == v.manifestFile || v.ignored(path) {
			continue
		}
		rep.files++
		if d, ok := checkDefinition(m.Source, path); !ok {
			add(d.WithPath(path))
		}
	}
	return rep
}

func canonicalVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func (v *Validator) ignored(path string) bool {
	for _, p := range v.ignore {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

func checkDefinition(src modsource.Source, path string) (diag.Diagnostic, bool) {
	data, err := src.ReadBytes(path)
	if err != nil {
		return diag.Errorf(diag.CodeDefinitionRead, "cannot read definition file").WithCause(err), false
	}
	_, err = definition.ParseDocument(data)
	switch {
	case err == nil:
		return diag.Diagnostic{}, true
	case errors.Is(err, definition.ErrMissingID):
		return diag.Errorf(diag.CodeDefinitionMissedID, "definition has no string id").WithCause(err), false
	case errors.Is(err, definition.ErrUnknownOperation):
		return diag.Errorf(diag.CodeUnknownOperation, "definition has an unknown operation").WithCause(err), false
	default:
		return diag.Errorf(diag.CodeDefinitionParse, "definition file is not a JSON object").WithCause(err), false
	}
}

// checkDependencies reports unknown dependencies and, over the known ones,
// any cycle found by a topological sort.
func checkDependencies(mods []discovery.Mod) []diag.Diagnostic {
	known := make(map[string]bool, len(mods))
	for _, m := range mods {
		known[m.Manifest.ID] = true
	}

	var out []diag.Diagnostic
	g := dag.New()
	for _, m := range mods {
		g.AddNode(m.Manifest.ID)
		for _, dep := range m.Manifest.Dependencies {
			if !known[dep] {
				out = append(out, diag.Errorf(diag.CodeMissingDependency, "mod %q depends on %q which was not discovered", m.Manifest.ID, dep).
					WithMod(m.Manifest.ID))
				continue
			}
			g.AddEdge(dep, m.Manifest.ID)
		}
	}

	if _, err := g.TopologicalSort(); err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) && len(cycle.Cycle) > 0 {
			out = append(out, diag.Errorf(diag.CodeCircularDependency, "mods %s are part of a dependency cycle", strings.Join(cycle.Cycle, ", ")).
				WithMod(cycle.Cycle[0]).WithCause(err))
		}
	}
	return out
}

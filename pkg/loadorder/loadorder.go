// SPDX-License-Identifier: MPL-2.0

// Package loadorder decides the order in which mods load.
//
// An explicit load order manifest wins when present. Otherwise mods are
// sorted by (priority, id) and walked depth-first so each mod follows its
// dependencies. In both cases the core mod loads first.
package loadorder

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/modkit/modkit/internal/dag"
	"github.com/modkit/modkit/pkg/diag"
	"github.com/modkit/modkit/pkg/modmanifest"
)

// ErrCoreModMissing is returned when the core mod was not discovered.
var ErrCoreModMissing = errors.New("core mod not found")

const (
	// StrategyExplicit orders mods by the load order manifest.
	StrategyExplicit Strategy = "explicit"
	// StrategyImplicit orders mods by priority and dependencies.
	StrategyImplicit Strategy = "implicit"
)

type (
	// Strategy names the ordering strategy that produced a Result.
	Strategy string

	// Result is a resolved load order.
	Result struct {
		// Core is the core mod; nil for ResolveExplicit and ResolveImplicit.
		Core *modmanifest.Manifest
		// Order lists the mods in load order.
		Order []*modmanifest.Manifest
		// Strategy is the strategy used for the mods after the core mod.
		Strategy Strategy
		// Diagnostics holds ordering warnings and errors.
		Diagnostics []diag.Diagnostic
	}
)

// IDs returns the mod IDs in load order.
func (r Result) IDs() []string {
	ids := make([]string, len(r.Order))
	for i, m := range r.Order {
		ids[i] = m.ID
	}
	return ids
}

// Resolve extracts the core mod and orders the rest. The core ID is the
// first entry of lo when lo is non-nil, else coreID. The returned order
// always starts with the core mod exactly once.
func Resolve(lo *modmanifest.LoadOrder, coreID string, mods []*modmanifest.Manifest) (Result, error) {
	core, rest, err := SplitCore(lo, coreID, mods)
	if err != nil {
		return Result{}, err
	}
	return ResolveRest(lo, core, rest), nil
}

// SplitCore separates the core mod from the other mods, which keep their
// discovery order. The core ID is chosen as in Resolve.
func SplitCore(lo *modmanifest.LoadOrder, coreID string, mods []*modmanifest.Manifest) (core *modmanifest.Manifest, rest []*modmanifest.Manifest, err error) {
	if lo != nil {
		coreID = lo.Core()
	}
	rest = make([]*modmanifest.Manifest, 0, len(mods))
	for _, m := range mods {
		if m.ID == coreID && core == nil {
			core = m
			continue
		}
		rest = append(rest, m)
	}
	if core == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrCoreModMissing, coreID)
	}
	return core, rest, nil
}

// ResolveRest orders rest behind an already chosen core mod, explicitly
// when lo is non-nil and implicitly otherwise.
func ResolveRest(lo *modmanifest.LoadOrder, core *modmanifest.Manifest, rest []*modmanifest.Manifest) Result {
	var res Result
	if lo != nil {
		res = ResolveExplicit(lo.Order, append([]*modmanifest.Manifest{core}, rest...))
	} else {
		res = resolveImplicit(rest, map[string]bool{core.ID: true})
		res.Order = append([]*modmanifest.Manifest{core}, res.Order...)
	}
	res.Core = core
	return res
}

// ResolveExplicit orders mods as listed in order. Unknown IDs are errors,
// repeated IDs are ignored with a warning, and discovered mods missing from
// the list are appended in discovery order with a warning each.
func ResolveExplicit(order []string, mods []*modmanifest.Manifest) Result {
	byID := indexByID(mods)
	res := Result{Strategy: StrategyExplicit, Order: make([]*modmanifest.Manifest, 0, len(mods))}
	placed := make(map[string]bool, len(mods))

	for _, id := range order {
		if placed[id] {
			res.Diagnostics = append(res.Diagnostics,
				diag.Warnf(diag.CodeDuplicateInOrder, "mod %q is listed more than once in the load order", id).WithMod(id))
			continue
		}
		m, ok := byID[id]
		if !ok {
			res.Diagnostics = append(res.Diagnostics,
				diag.Errorf(diag.CodeUnknownModInOrder, "load order lists mod %q which was not discovered", id).WithMod(id))
			placed[id] = true
			continue
		}
		placed[id] = true
		res.Order = append(res.Order, m)
	}

	for _, m := range mods {
		if placed[m.ID] {
			continue
		}
		placed[m.ID] = true
		res.Order = append(res.Order, m)
		res.Diagnostics = append(res.Diagnostics,
			diag.Warnf(diag.CodeModNotInOrder, "mod %q is not in the load order; appended at the end", m.ID).WithMod(m.ID))
	}
	return res
}

// ResolveImplicit orders mods by (priority, id) with every mod placed after
// its dependencies. Cycles and unknown dependencies are reported and the
// offending edges ignored.
func ResolveImplicit(mods []*modmanifest.Manifest) Result {
	return resolveImplicit(mods, nil)
}

// resolveImplicit treats dependencies on preloaded IDs as satisfied.
func resolveImplicit(mods []*modmanifest.Manifest, preloaded map[string]bool) Result {
	sorted := make([]*modmanifest.Manifest, len(mods))
	copy(sorted, mods)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].ID < sorted[j].ID
	})

	byID := indexByID(sorted)
	res := Result{Strategy: StrategyImplicit}
	g := dag.New()
	roots := make([]string, 0, len(sorted))
	for _, m := range sorted {
		g.AddNode(m.ID)
		roots = append(roots, m.ID)
	}
	for _, m := range sorted {
		for _, dep := range m.Dependencies {
			switch {
			case byID[dep] != nil:
				g.AddEdge(dep, m.ID)
			case preloaded[dep]:
			default:
				res.Diagnostics = append(res.Diagnostics,
					diag.Errorf(diag.CodeMissingDependency, "mod %q depends on %q which was not discovered", m.ID, dep).WithMod(m.ID))
			}
		}
	}

	ids, cycles := g.DependencyOrder(roots)
	for _, c := range cycles {
		res.Diagnostics = append(res.Diagnostics,
			diag.Errorf(diag.CodeCircularDependency, "circular dependency: %s", strings.Join(c.Cycle, " -> ")).
				WithMod(c.Cycle[0]).WithCause(c))
	}
	res.Order = make([]*modmanifest.Manifest, 0, len(ids))
	for _, id := range ids {
		res.Order = append(res.Order, byID[id])
	}
	return res
}

func indexByID(mods []*modmanifest.Manifest) map[string]*modmanifest.Manifest {
	byID := make(map[string]*modmanifest.Manifest, len(mods))
	for _, m := range mods {
		if _, dup := byID[m.ID]; !dup {
			byID[m.ID] = m
		}
	}
	return byID
}

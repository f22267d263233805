// SPDX-License-Identifier: MPL-2.0

// Package registry stores the merged definitions produced by a load. The
// registry accepts writes until Lock is called; afterwards it is read-only
// and every write fails with ErrLocked.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/modkit/modkit/pkg/definition"
)

var (
	// ErrLocked is returned by Register after Lock.
	ErrLocked = errors.New("registry is locked")
	// ErrMissingID is returned when registering a definition without an ID.
	ErrMissingID = errors.New("definition id is required")
	// ErrNotFound is returned when a definition ID is not registered.
	ErrNotFound = errors.New("definition not found")
)

type (
	// Metadata is the stored state of one definition.
	Metadata struct {
		ID string `msgpack:"id"`
		// OriginalModID is the mod that first created the definition.
		OriginalModID string `msgpack:"original_mod"`
		// LastModifiedByModID is the mod that performed the latest write.
		LastModifiedByModID string `msgpack:"last_mod"`
		// Operation is the operation of the latest write.
		Operation definition.Operation `msgpack:"operation"`
		// DefinitionType is the inferred type of the latest write.
		DefinitionType string `msgpack:"type"`
		// Data is the merged content. Callers must not modify it.
		Data map[string]any `msgpack:"data"`
		// SourcePath is the file of the latest write, relative to its mod.
		SourcePath string `msgpack:"source_path"`
	}

	// Registry is a type-indexed definition store. It is safe for concurrent use.
	Registry struct {
		mu     sync.RWMutex
		locked bool
		defs   map[string]*Metadata
		order  []string
		byType map[string][]string
	}
)

// New returns an empty, unlocked registry.
func New() *Registry {
	return &Registry{
		defs:   make(map[string]*Metadata),
		byType: make(map[string][]string),
	}
}

// Register stores def, merging it with an existing definition of the same
// ID according to def.Operation. It returns the resulting metadata.
func (r *Registry) Register(def definition.Definition) (*Metadata, error) {
	if def.ID == "" {
		return nil, ErrMissingID
	}
	op := def.Operation
	if op == "" {
		op = definition.OpCreate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locked {
		return nil, fmt.Errorf("cannot register %q: %w", def.ID, ErrLocked)
	}

	prev, exists := r.defs[def.ID]
	md := &Metadata{
		ID:                  def.ID,
		OriginalModID:       def.ModID,
		LastModifiedByModID: def.ModID,
		Operation:           op,
		DefinitionType:      def.Type,
		SourcePath:          def.SourcePath,
	}
	if exists {
		md.OriginalModID = prev.OriginalModID
		md.Data = definition.Merge(prev.Data, def.Data, op)
		if prev.DefinitionType != md.DefinitionType {
			r.byType[prev.DefinitionType] = slices.DeleteFunc(r.byType[prev.DefinitionType],
				func(id string) bool { return id == def.ID })
			if len(r.byType[prev.DefinitionType]) == 0 {
				delete(r.byType, prev.DefinitionType)
			}
			r.byType[md.DefinitionType] = append(r.byType[md.DefinitionType], def.ID)
		}
	} else {
		md.Data = definition.Clone(def.Data)
		r.order = append(r.order, def.ID)
		r.byType[md.DefinitionType] = append(r.byType[md.DefinitionType], def.ID)
	}
	r.defs[def.ID] = md

	out := *md
	return &out, nil
}

// Lock makes the registry read-only. Locking is permanent.
func (r *Registry) Lock() {
	r.mu.Lock()
	r.locked = true
	r.mu.Unlock()
}

// IsLocked reports whether Lock has been called.
func (r *Registry) IsLocked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locked
}

// Get returns the metadata for id.
func (r *Registry) Get(id string) (*Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	md, ok := r.defs[id]
	if !ok {
		return nil, false
	}
	out := *md
	return &out, true
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[id]
	return ok
}

// IDs returns every definition ID in first-registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// IDsByType returns the IDs of definitions of type t in registration order.
func (r *Registry) IDsByType(t string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.byType[t])
}

// Types returns the registered definition types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// CountByType returns the number of definitions per type.
func (r *Registry) CountByType() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int, len(r.byType))
	for t, ids := range r.byType {
		counts[t] = len(ids)
	}
	return counts
}

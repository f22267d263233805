// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotSchemaVersion is bumped whenever snapshotPayload changes shape.
const snapshotSchemaVersion uint16 = 1

// ErrSnapshotVersion is returned when reading a snapshot with another schema version.
var ErrSnapshotVersion = errors.New("unsupported registry snapshot version")

type snapshotPayload struct {
	Schema      uint16     `msgpack:"schema"`
	Definitions []Metadata `msgpack:"definitions"`
}

// WriteSnapshot serializes every definition, in registration order, to w.
func (r *Registry) WriteSnapshot(w io.Writer) error {
	r.mu.RLock()
	payload := snapshotPayload{
		Schema:      snapshotSchemaVersion,
		Definitions: make([]Metadata, 0, len(r.order)),
	}
	for _, id := range r.order {
		payload.Definitions = append(payload.Definitions, *r.defs[id])
	}
	r.mu.RUnlock()

	if err := msgpack.NewEncoder(w).Encode(&payload); err != nil {
		return fmt.Errorf("failed to encode registry snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot rebuilds a registry from a snapshot. The returned registry is locked.
func ReadSnapshot(rd io.Reader) (*Registry, error) {
	var payload snapshotPayload
	if err := msgpack.NewDecoder(rd).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode registry snapshot: %w", err)
	}
	if payload.Schema != snapshotSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, payload.Schema)
	}

	r := New()
	for i := range payload.Definitions {
		md := payload.Definitions[i]
		if md.ID == "" {
			return nil, fmt.Errorf("snapshot entry %d: %w", i, ErrMissingID)
		}
		if _, dup := r.defs[md.ID]; dup {
			return nil, fmt.Errorf("snapshot entry %d: duplicate definition %q", i, md.ID)
		}
		r.defs[md.ID] = &md
		r.order = append(r.order, md.ID)
		r.byType[md.DefinitionType] = append(r.byType[md.DefinitionType], md.ID)
	}
	r.locked = true
	return r, nil
}

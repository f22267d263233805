// SPDX-License-Identifier: MPL-2.0

package loader

import "github.com/modkit/modkit/pkg/definition"

type (
	// DefinitionDiscovered is published after a definition is registered.
	DefinitionDiscovered struct {
		// ModID is the mod whose file was just loaded.
		ModID string
		// DefinitionType is the inferred type.
		DefinitionType string
		// DefinitionID is the definition identity.
		DefinitionID string
		// FilePath is the file path relative to the mod root.
		FilePath string
		// SourceModID is the mod that originally created the definition.
		SourceModID string
		// Operation is the operation applied by this file.
		Operation definition.Operation
	}

	// Listener receives definition notifications. Calls are synchronous and
	// happen on the loading goroutine.
	Listener interface {
		DefinitionDiscovered(ev DefinitionDiscovered)
	}

	// ListenerFunc adapts a function to Listener.
	ListenerFunc func(ev DefinitionDiscovered)
)

// DefinitionDiscovered calls f(ev).
func (f ListenerFunc) DefinitionDiscovered(ev DefinitionDiscovered) { f(ev) }

// SPDX-License-Identifier: MPL-2.0

// Package typeinfer classifies definition files into definition types.
//
// A Chain runs stateless strategies from cheapest to most expensive. Path
// based strategies run first; a strategy that needs the parsed document
// triggers the (lazy) parse only when every earlier strategy came up empty.
package typeinfer

import (
	"errors"
	"fmt"

	"github.com/modkit/modkit/pkg/modmanifest"
)

// ErrTypeNotInferred is returned when no strategy classifies a file.
var ErrTypeNotInferred = errors.New("definition type could not be inferred")

type (
	// Context carries everything a strategy may inspect.
	Context struct {
		// Path is the normalized, mod-relative path of the definition file.
		Path string
		// Manifest is the manifest of the mod owning the file.
		Manifest *modmanifest.Manifest
		// Document is the parsed file. It is nil until a strategy needs it.
		Document map[string]any
	}

	// Strategy is one classification rule.
	Strategy interface {
		// Name identifies the strategy in results and logs.
		Name() string
		// NeedsDocument reports whether Infer reads Context.Document.
		NeedsDocument() bool
		// Infer returns the type, or "" when the strategy does not apply.
		Infer(ctx *Context) string
	}

	// ParseFunc lazily produces the parsed document.
	ParseFunc func() (map[string]any, error)

	// Result is a successful classification.
	Result struct {
		// Type is the inferred definition type.
		Type string
		// Strategy is the name of the strategy that produced Type.
		Strategy string
		// Warning is set when the manifest declares custom types and Type is
		// neither built in nor declared. It never fails the load.
		Warning string
	}

	// Chain is an ordered list of strategies.
	Chain struct {
		strategies []Strategy
	}
)

// NewChain returns a chain running strategies in the given order.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// DefaultChain returns the standard chain: path prefix, directory
// convention, explicit $type field, then manifest custom types.
func DefaultChain() *Chain {
	return NewChain(PathPrefix{}, DirectoryConvention{}, ExplicitField{}, CustomTypes{})
}

// Strategies returns the strategy names in order.
func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Infer returns the first non-empty classification. parse may be nil, in
// which case strategies needing the document are skipped unless
// ctx.Document is already set.
func (c *Chain) Infer(ctx *Context, parse ParseFunc) (Result, error) {
	for _, s := range c.strategies {
		if s.NeedsDocument() && ctx.Document == nil {
			if parse == nil {
				continue
			}
			doc, err := parse()
			if err != nil {
				return Result{}, fmt.Errorf("%s: %w", ctx.Path, err)
			}
			ctx.Document = doc
		}
		if t := s.Infer(ctx); t != "" {
			return Result{Type: t, Strategy: s.Name(), Warning: undeclaredWarning(ctx.Manifest, t)}, nil
		}
	}
	return Result{}, fmt.Errorf("%s: %w", ctx.Path, ErrTypeNotInferred)
}

func undeclaredWarning(m *modmanifest.Manifest, t string) string {
	if m == nil || !m.DeclaresCustomTypes() || IsBuiltin(t) || m.HasCustomType(t) {
		return ""
	}
	return fmt.Sprintf("type %q is not declared in the customTypes of mod %q", t, m.ID)
}

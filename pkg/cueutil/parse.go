// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

// ParseResult contains the result of a successful parse.
type ParseResult[T any] struct {
	// Value is the decoded Go struct.
	Value *T

	// Unified is the schema-unified CUE value, kept for callers that need to
	// inspect fields the Go struct does not model.
	Unified cue.Value
}

// ParseAndDecode validates CUE source data against the schemaPath definition
// of schema and decodes the result into T.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := resolveOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	user := ctx.CompileBytes(data, cue.Filename(o.filename))
	if user.Err() != nil {
		return nil, FormatError(user.Err(), o.filename)
	}

	return unifyAndDecode[T](ctx, schema, user, schemaPath, o)
}

// DecodeJSON validates a JSON document against the schemaPath definition of
// schema and decodes the result into T.
func DecodeJSON[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := resolveOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	expr, err := cuejson.Extract(o.filename, data)
	if err != nil {
		return nil, FormatError(err, o.filename)
	}

	ctx := cuecontext.New()
	user := ctx.BuildExpr(expr)
	if user.Err() != nil {
		return nil, FormatError(user.Err(), o.filename)
	}

	return unifyAndDecode[T](ctx, schema, user, schemaPath, o)
}

func resolveOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.filename == "" {
		o.filename = "<input>"
	}
	return o
}

func unifyAndDecode[T any](ctx *cue.Context, schema []byte, user cue.Value, schemaPath string, o options) (*ParseResult[T], error) {
	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	root := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if root.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, root.Err())
	}

	unified := root.Unify(user)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, o.filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, o.filename)
	}

	return &ParseResult[T]{Value: &result, Unified: unified}, nil
}

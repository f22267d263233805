// SPDX-License-Identifier: MPL-2.0

package definition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// KeyID is the required identity field.
	KeyID = "id"
	// KeyOperation is the merge directive field.
	KeyOperation = "$operation"
	// KeyType is the explicit type override field.
	KeyType = "$type"
)

var (
	// ErrNotObject is returned when a definition file is not a JSON object.
	ErrNotObject = errors.New("definition is not a JSON object")
	// ErrMissingID is returned when the id field is absent, empty or not a string.
	ErrMissingID = errors.New("definition has no string id")
)

type (
	// Document is a parsed definition file before type inference.
	Document struct {
		// ID is the definition identity.
		ID string
		// Operation is the parsed $operation directive (OpCreate when absent).
		Operation Operation
		// ExplicitType is the $type directive, empty when absent.
		ExplicitType string
		// Data is the owned content tree with directive keys removed.
		Data map[string]any
	}

	// Definition is a document ready for registration.
	Definition struct {
		ID         string
		Type       string
		Operation  Operation
		ModID      string
		SourcePath string
		Data       map[string]any
	}
)

// DecodeObject decodes raw JSON into an owned object tree. Integral numbers
// become int64 (uint64 above the int64 range) and the rest float64.
func DecodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, errors.New("invalid JSON: trailing data after document")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	if _, err := normalizeNumbers(obj); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return obj, nil
}

// normalizeNumbers replaces every json.Number in v and returns the result.
// Containers are updated in place.
func normalizeNumbers(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		return convertNumber(t)
	case map[string]any:
		for k, e := range t {
			n, err := normalizeNumbers(e)
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
	case []any:
		for i, e := range t {
			n, err := normalizeNumbers(e)
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
	}
	return v, nil
}

func convertNumber(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("number %s: %w", s, err)
	}
	return f, nil
}

// ParseDocument decodes a definition file, validates its id and directives,
// and strips the directive keys from the returned data.
func ParseDocument(data []byte) (*Document, error) {
	obj, err := DecodeObject(data)
	if err != nil {
		return nil, err
	}
	return FromObject(obj)
}

// FromObject builds a Document from an already decoded tree. obj is not
// modified; the document's Data is a top-level copy without directive keys.
func FromObject(obj map[string]any) (*Document, error) {
	id, ok := obj[KeyID].(string)
	if !ok || id == "" {
		return nil, ErrMissingID
	}

	doc := &Document{ID: id, Operation: OpCreate}
	if raw, present := obj[KeyOperation]; present {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", ErrUnknownOperation, KeyOperation)
		}
		op, err := ParseOperation(s)
		if err != nil {
			return nil, err
		}
		doc.Operation = op
	}
	if s, ok := obj[KeyType].(string); ok {
		doc.ExplicitType = s
	}

	doc.Data = make(map[string]any, len(obj))
	for k, v := range obj {
		doc.Data[k] = v
	}
	StripDirectives(doc.Data)
	return doc, nil
}

// StripDirectives removes top-level keys starting with '$'.
func StripDirectives(obj map[string]any) {
	for k := range obj {
		if len(k) > 0 && k[0] == '$' {
			delete(obj, k)
		}
	}
}

// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE validation utilities.
//
// Mod manifests are plain JSON, config files are CUE; both are checked against
// an embedded CUE schema before being decoded into Go structs:
//
//  1. Compile the embedded schema and look up the root definition
//  2. Build the user value (CUE source or extracted JSON) and unify it
//  3. Validate and decode to the Go struct
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.DecodeJSON[Manifest](
//	    schemaBytes,
//	    manifestBytes,
//	    "#Manifest",
//	    cueutil.WithFilename("mod.json"),
//	)
//	if err != nil {
//	    return nil, err // error carries the JSON path of the offending field
//	}
//	return result.Value, nil
package cueutil

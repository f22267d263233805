// SPDX-License-Identifier: MPL-2.0

// Package modmanifest parses mod manifests (mod.json) and the root load order
// manifest (mod_order.json).
//
// Both documents are JSON validated against an embedded CUE schema, so a
// malformed manifest is reported with the path of the offending field:
//
//	mod.json: priority: conflicting values "high" and int (mismatched types string and int)
package modmanifest

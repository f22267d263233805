// SPDX-License-Identifier: MPL-2.0

// Package definition models content definitions and the merge algebra that
// resolves two documents sharing an ID.
//
// Documents are JSON objects decoded into owned map[string]any trees. The
// directive keys ($operation, $type) are read and then stripped, so stored
// data only carries content fields.
package definition

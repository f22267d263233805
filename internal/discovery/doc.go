// SPDX-License-Identifier: MPL-2.0

// Package discovery finds the mods under a mods directory.
//
// Immediate children are considered in name order: directories carrying a
// manifest become directory sources and archive files become archive
// sources, with their table of contents validated eagerly. Sources that
// fail to open, validate or parse are closed and reported as diagnostics.
package discovery

// SPDX-License-Identifier: MPL-2.0

// Package loader drives a full content load: discovery, load order
// resolution, per-file definition loading and registry lock.
//
// Failures below the mod level never abort a load. They are recorded as
// diagnostics and the load continues with the next file or mod; only a
// missing mods directory or core mod is fatal.
package loader

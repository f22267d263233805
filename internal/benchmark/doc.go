// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for the hot paths of a content load,
// suitable for PGO profile generation:
//   - manifest parsing and schema validation
//   - archive TOC parsing and entry decompression
//   - glob enumeration through the per-source cache
//   - definition merging
//   - end-to-end loading of a generated mods directory
//
// To generate a profile, run:
//
//	go test -run='^$' -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark

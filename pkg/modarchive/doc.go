// SPDX-License-Identifier: MPL-2.0

// Package modarchive reads and writes .modpak archives, the single-file
// container a mod can be distributed as.
//
// # Layout
//
// All integers are little-endian.
//
//	offset 0   magic    [8]byte  "MODPAK\r\n"
//	offset 8   version  uint16   (1)
//	offset 10  tocOff   uint64
//	offset 18  payload blocks, one zstd frame per non-empty file
//	tocOff     count    uint32
//	           count x { pathLen uint16, path [pathLen]byte,
//	                     uncompressed uint64, compressed uint64, dataOffset uint64 }
//
// Paths are stored with forward slashes, relative to the mod root, with their
// original case.
//
// # Integrity
//
// The table of contents is parsed lazily, once per Reader, and every entry is
// bounds-checked against the file size before any payload is trusted. A
// payload whose decompressed length differs from the recorded size is
// reported as corruption rather than truncated or padded. All integrity
// failures wrap ErrCorrupt.
package modarchive

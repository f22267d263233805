// SPDX-License-Identifier: MPL-2.0

package modarchive

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Writer builds a mod archive on a seekable stream.
//
// Entries are compressed as they are added; Close appends the TOC and patches
// its offset into the header. A Writer is not safe for concurrent use.
type Writer struct {
	ws      io.WriteSeeker
	offset  uint64
	entries []Entry
	seen    map[string]struct{}
	closed  bool
}

// NewWriter writes the archive header to ws, which must be positioned at the
// start of an empty stream.
func NewWriter(ws io.WriteSeeker) (*Writer, error) {
	header := make([]byte, headerSize)
	copy(header, Magic[:])
	binary.LittleEndian.PutUint16(header[magicLen:], Version)
	if _, err := ws.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write archive header: %w", err)
	}
	return &Writer{
		ws:     ws,
		offset: headerSize,
		seen:   make(map[string]struct{}),
	}, nil
}

// Add compresses data and records it under name.
func (w *Writer) Add(name string, data []byte) error {
	if w.closed {
		return ErrWriterClosed
	}
	p, err := NormalizePath(name)
	if err != nil {
		return err
	}
	if len(p) > maxPathLen {
		return fmt.Errorf("%w: path longer than %d bytes", ErrInvalidPath, maxPathLen)
	}
	if _, dup := w.seen[p]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, p)
	}
	if uint64(len(data)) > MaxEntrySize {
		return fmt.Errorf("%s: %d bytes exceeds the %d byte entry limit", p, len(data), MaxEntrySize)
	}

	entry := Entry{Path: p, UncompressedSize: uint64(len(data)), DataOffset: w.offset}
	if len(data) > 0 {
		enc, err := sharedEncoder()
		if err != nil {
			return fmt.Errorf("internal error: zstd encoder: %w", err)
		}
		frame := enc.EncodeAll(data, nil)
		if _, err := w.ws.Write(frame); err != nil {
			return fmt.Errorf("failed to write %s: %w", p, err)
		}
		entry.CompressedSize = uint64(len(frame))
		w.offset += entry.CompressedSize
	}

	w.seen[p] = struct{}{}
	w.entries = append(w.entries, entry)
	return nil
}

// Entries returns the entries added so far, in insertion order.
func (w *Writer) Entries() []Entry {
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Close writes the TOC and patches the header. It does not close the stream.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	tocOff := w.offset
	toc := make([]byte, 4, 4+len(w.entries)*(entryFixedSize+32))
	binary.LittleEndian.PutUint32(toc, uint32(len(w.entries)))
	for _, e := range w.entries {
		toc = binary.LittleEndian.AppendUint16(toc, uint16(len(e.Path)))
		toc = append(toc, e.Path...)
		toc = binary.LittleEndian.AppendUint64(toc, e.UncompressedSize)
		toc = binary.LittleEndian.AppendUint64(toc, e.CompressedSize)
		toc = binary.LittleEndian.AppendUint64(toc, e.DataOffset)
	}
	if _, err := w.ws.Write(toc); err != nil {
		return fmt.Errorf("failed to write table of contents: %w", err)
	}

	if _, err := w.ws.Seek(magicLen+2, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to header: %w", err)
	}
	var off [8]byte
	binary.LittleEndian.PutUint64(off[:], tocOff)
	if _, err := w.ws.Write(off[:]); err != nil {
		return fmt.Errorf("failed to patch header: %w", err)
	}
	if _, err := w.ws.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}
	return nil
}

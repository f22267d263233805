// SPDX-License-Identifier: MPL-2.0

package modarchive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"
)

// Reader provides random access to the files of a mod archive.
//
// A Reader is safe for concurrent use. The table of contents is parsed at
// most once; payload reads are serialized because the underlying stream has
// a single read cursor.
type Reader struct {
	name   string
	rs     io.ReadSeeker
	size   int64
	closer io.Closer

	tocMu     sync.RWMutex
	tocParsed bool
	toc       map[string]Entry
	tocErr    error

	// readMu guards the shared seek position of rs.
	readMu sync.Mutex
}

// Open opens the archive at path. The TOC is not parsed until first needed.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}
	r := NewReader(f, info.Size())
	r.name = path
	r.closer = f
	return r, nil
}

// NewReader wraps a stream of the given size. The caller keeps ownership of
// rs; Close is a no-op for readers created this way.
func NewReader(rs io.ReadSeeker, size int64) *Reader {
	return &Reader{name: "<stream>", rs: rs, size: size}
}

// Name returns the archive path (or "<stream>").
func (r *Reader) Name() string {
	return r.name
}

// Size returns the archive file size in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// Close releases the underlying file when the Reader was created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	r.readMu.Lock()
	defer r.readMu.Unlock()
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Validate parses the TOC, returning the first integrity error if any.
func (r *Reader) Validate() error {
	_, err := r.entries()
	return err
}

// Len returns the number of entries.
func (r *Reader) Len() (int, error) {
	toc, err := r.entries()
	if err != nil {
		return 0, err
	}
	return len(toc), nil
}

// TOC returns a copy of the parsed table of contents keyed by normalized path.
func (r *Reader) TOC() (map[string]Entry, error) {
	toc, err := r.entries()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Entry, len(toc))
	for k, v := range toc {
		out[k] = v
	}
	return out, nil
}

// Entries returns all TOC entries sorted by path.
func (r *Reader) Entries() ([]Entry, error) {
	toc, err := r.entries()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(toc))
	for _, e := range toc {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Lookup returns the entry for name, which is normalized first.
func (r *Reader) Lookup(name string) (Entry, bool, error) {
	p, err := NormalizePath(name)
	if err != nil {
		return Entry{}, false, err
	}
	toc, err := r.entries()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := toc[p]
	return e, ok, nil
}

// ReadFile returns the decompressed contents of name.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	entry, ok, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", r.name, name, ErrNotFound)
	}
	return r.readEntry(entry)
}

// Verify decompresses every entry and reports all integrity failures.
func (r *Reader) Verify() error {
	entries, err := r.Entries()
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		if _, err := r.readEntry(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// entries returns the parsed TOC. The fast path only takes the read lock;
// on a miss the write lock is taken and the state re-checked so concurrent
// first callers trigger a single parse.
func (r *Reader) entries() (map[string]Entry, error) {
	r.tocMu.RLock()
	if r.tocParsed {
		toc, err := r.toc, r.tocErr
		r.tocMu.RUnlock()
		return toc, err
	}
	r.tocMu.RUnlock()

	r.tocMu.Lock()
	defer r.tocMu.Unlock()
	if !r.tocParsed {
		r.toc, r.tocErr = r.parseTOC()
		r.tocParsed = true
	}
	return r.toc, r.tocErr
}

func (r *Reader) parseTOC() (map[string]Entry, error) {
	if r.size < headerSize {
		return nil, fmt.Errorf("%s: %w: file is %d bytes, header needs %d", r.name, ErrCorrupt, r.size, headerSize)
	}

	header := make([]byte, headerSize)
	if err := r.readAt(0, header); err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", r.name, err)
	}
	if !bytes.Equal(header[:magicLen], Magic[:]) {
		return nil, fmt.Errorf("%s: %w", r.name, ErrBadMagic)
	}
	if v := binary.LittleEndian.Uint16(header[magicLen:]); v != Version {
		return nil, fmt.Errorf("%s: %w: %d", r.name, ErrUnsupportedVersion, v)
	}

	size := uint64(r.size)
	tocOff := binary.LittleEndian.Uint64(header[magicLen+2:])
	if tocOff < headerSize || tocOff >= size {
		return nil, fmt.Errorf("%s: %w: offset %d, file size %d", r.name, ErrTOCOutOfBounds, tocOff, size)
	}
	tocLen := size - tocOff
	if tocLen < 4 || tocLen > maxTOCSize {
		return nil, fmt.Errorf("%s: %w: %d bytes", r.name, ErrTOCOutOfBounds, tocLen)
	}

	buf := make([]byte, tocLen)
	if err := r.readAt(int64(tocOff), buf); err != nil {
		return nil, fmt.Errorf("%s: failed to read table of contents: %w", r.name, err)
	}

	toc, err := decodeTOC(buf, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.name, err)
	}
	return toc, nil
}

// decodeTOC parses the TOC bytes and bounds-checks every entry against fileSize.
func decodeTOC(buf []byte, fileSize uint64) (map[string]Entry, error) {
	count := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	if uint64(count)*entryFixedSize > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: %d entries do not fit in %d bytes", ErrTOCOutOfBounds, count, len(buf))
	}

	toc := make(map[string]Entry, count)
	for i := range count {
		if len(buf) < 2 {
			return nil, fmt.Errorf("%w: entry %d truncated", ErrTOCOutOfBounds, i)
		}
		pathLen := int(binary.LittleEndian.Uint16(buf))
		buf = buf[2:]
		if len(buf) < pathLen+entryFixedSize-2 {
			return nil, fmt.Errorf("%w: entry %d truncated", ErrTOCOutOfBounds, i)
		}
		rawPath := buf[:pathLen]
		buf = buf[pathLen:]

		e := Entry{
			UncompressedSize: binary.LittleEndian.Uint64(buf[0:]),
			CompressedSize:   binary.LittleEndian.Uint64(buf[8:]),
			DataOffset:       binary.LittleEndian.Uint64(buf[16:]),
		}
		buf = buf[24:]

		if !utf8.Valid(rawPath) {
			return nil, fmt.Errorf("%w: entry %d path is not UTF-8", ErrCorrupt, i)
		}
		p, err := NormalizePath(string(rawPath))
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrCorrupt, i, err)
		}
		e.Path = p
		if _, dup := toc[p]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %q", ErrCorrupt, p)
		}
		if err := checkEntry(e, fileSize); err != nil {
			return nil, err
		}
		toc[p] = e
	}
	return toc, nil
}

func checkEntry(e Entry, fileSize uint64) error {
	if e.UncompressedSize == 0 {
		if e.CompressedSize != 0 {
			return fmt.Errorf("%w: empty entry %q has %d compressed bytes", ErrCorrupt, e.Path, e.CompressedSize)
		}
		return nil
	}
	if e.CompressedSize == 0 {
		return fmt.Errorf("%w: entry %q has no compressed payload", ErrCorrupt, e.Path)
	}
	if e.UncompressedSize > MaxEntrySize {
		return fmt.Errorf("%w: entry %q is %d bytes, limit %d", ErrCorrupt, e.Path, e.UncompressedSize, MaxEntrySize)
	}
	if e.DataOffset < headerSize || e.CompressedSize > fileSize || e.DataOffset > fileSize-e.CompressedSize {
		return fmt.Errorf("%w: entry %q spans [%d, +%d) in a %d byte file",
			ErrEntryOutOfBounds, e.Path, e.DataOffset, e.CompressedSize, fileSize)
	}
	return nil
}

func (r *Reader) readEntry(e Entry) ([]byte, error) {
	if e.IsEmpty() {
		return []byte{}, nil
	}

	bp := getBuffer(int(e.CompressedSize))
	defer putBuffer(bp)

	if err := r.readAt(int64(e.DataOffset), *bp); err != nil {
		return nil, fmt.Errorf("%s: failed to read %s: %w", r.name, e.Path, err)
	}

	dec, err := sharedDecoder()
	if err != nil {
		return nil, fmt.Errorf("internal error: zstd decoder: %w", err)
	}
	var hdr zstd.Header
	if err := hdr.Decode(*bp); err != nil {
		return nil, fmt.Errorf("%s: %w: %s: %w", r.name, ErrCorrupt, e.Path, err)
	}
	if hdr.HasFCS && hdr.FrameContentSize != e.UncompressedSize {
		return nil, fmt.Errorf("%s: %w: %s: frame declares %d bytes, want %d",
			r.name, ErrSizeMismatch, e.Path, hdr.FrameContentSize, e.UncompressedSize)
	}
	out, err := dec.DecodeAll(*bp, make([]byte, 0, min(e.UncompressedSize, maxPrealloc)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s: %w", r.name, ErrCorrupt, e.Path, err)
	}
	if uint64(len(out)) != e.UncompressedSize {
		return nil, fmt.Errorf("%s: %w: %s: got %d bytes, want %d",
			r.name, ErrSizeMismatch, e.Path, len(out), e.UncompressedSize)
	}
	return out, nil
}

// readAt fills dst from offset under the exclusive read lock. A short read
// surfaces as io.ErrUnexpectedEOF.
func (r *Reader) readAt(offset int64, dst []byte) error {
	r.readMu.Lock()
	defer r.readMu.Unlock()

	if _, err := r.rs.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(r.rs, dst); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

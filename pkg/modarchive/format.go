// SPDX-License-Identifier: MPL-2.0

package modarchive

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	// Ext is the file extension of mod archives.
	Ext = ".modpak"

	// Version is the only supported format version.
	Version uint16 = 1

	magicLen   = 8
	headerSize = magicLen + 2 + 8
	// entryFixedSize is the size of an entry record without its path bytes.
	entryFixedSize = 2 + 8 + 8 + 8

	// MaxEntrySize bounds the uncompressed size of a single archive entry.
	MaxEntrySize = 1 << 30
	// maxPrealloc caps the output buffer allocated from a TOC size before
	// decompression has produced any data.
	maxPrealloc = 4 << 20
	// maxTOCSize bounds the table of contents read into memory.
	maxTOCSize = 64 << 20
	// maxPathLen is the largest path a uint16 length prefix can describe.
	maxPathLen = 1<<16 - 1
)

// Magic identifies a mod archive.
var Magic = [magicLen]byte{'M', 'O', 'D', 'P', 'A', 'K', '\r', '\n'}

var (
	// ErrCorrupt is wrapped by every archive integrity failure.
	ErrCorrupt = errors.New("corrupt mod archive")
	// ErrBadMagic is returned when the file does not start with Magic.
	ErrBadMagic = fmt.Errorf("%w: bad magic", ErrCorrupt)
	// ErrUnsupportedVersion is returned for any format version other than Version.
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported format version", ErrCorrupt)
	// ErrTOCOutOfBounds is returned when the TOC offset or contents exceed the file.
	ErrTOCOutOfBounds = fmt.Errorf("%w: table of contents out of bounds", ErrCorrupt)
	// ErrEntryOutOfBounds is returned when an entry's payload exceeds the file.
	ErrEntryOutOfBounds = fmt.Errorf("%w: entry out of bounds", ErrCorrupt)
	// ErrSizeMismatch is returned when a payload decompresses to the wrong length.
	ErrSizeMismatch = fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)

	// ErrNotFound is returned when a path is not present in the archive.
	ErrNotFound = fmt.Errorf("archive entry %w", fs.ErrNotExist)
	// ErrInvalidPath is returned for empty, absolute-escaping or ".." paths.
	ErrInvalidPath = errors.New("invalid archive path")
	// ErrDuplicatePath is returned when a path is added to a Writer twice.
	ErrDuplicatePath = errors.New("duplicate archive path")
	// ErrWriterClosed is returned when writing to a closed Writer.
	ErrWriterClosed = errors.New("archive writer closed")
)

// Entry is a table of contents record.
type Entry struct {
	// Path is the normalized forward-slash path relative to the mod root.
	Path string
	// UncompressedSize is the exact length of the decoded payload.
	UncompressedSize uint64
	// CompressedSize is the length of the stored zstd frame.
	CompressedSize uint64
	// DataOffset is the absolute file offset of the stored frame.
	DataOffset uint64
}

// IsEmpty reports whether the entry describes a zero-length file.
func (e Entry) IsEmpty() bool {
	return e.UncompressedSize == 0
}

// NormalizePath converts p to the archive's canonical form: forward slashes,
// no leading "./" or "/", cleaned. Paths escaping the root are rejected.
func NormalizePath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimLeft(p, "/")
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q escapes the archive root", ErrInvalidPath, p)
	}
	return cleaned, nil
}

var (
	sharedDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(0),
			zstd.WithDecoderMaxMemory(MaxEntrySize),
		)
	})
	sharedEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
)

// bufferPool holds scratch buffers for compressed payloads.
var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 64<<10)
		return &b
	},
}

const maxPooledBuffer = 4 << 20

func getBuffer(n int) *[]byte {
	bp, _ := bufferPool.Get().(*[]byte)
	if bp == nil {
		b := make([]byte, 0, n)
		bp = &b
	}
	if cap(*bp) < n {
		*bp = make([]byte, n)
	} else {
		*bp = (*bp)[:n]
	}
	return bp
}

func putBuffer(bp *[]byte) {
	if cap(*bp) > maxPooledBuffer {
		return
	}
	*bp = (*bp)[:0]
	bufferPool.Put(bp)
}

package rdbsnap

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// snapshotReader closes the underlying file once the caller is done,
// regardless of how many decompressing layers wrap it.
type snapshotReader struct {
	io.Reader
	file   *os.File
	closer io.Closer
}

func (s *snapshotReader) Close() error {
	if s.closer != nil {
		_ = s.closer.Close()
	}
	return s.file.Close()
}

var (
	gzipMagic = []byte{0x1F, 0x8B}
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// OpenSnapshot opens path read-only and, per spec §4.H, transparently
// unwraps an outer gzip/zstd/lz4 transport wrapper before handing raw
// dump bytes to the decoder. This is distinct from the dump format's own
// internal LZF string compression (component B), which stays in scope
// and is handled by the decoder itself regardless of which of these
// wrappers (if any) applies.
func OpenSnapshot(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rdb: opening snapshot: %w", err)
	}

	buffered := bufio.NewReader(f)
	sniff, err := buffered.Peek(4)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		f.Close()
		return nil, fmt.Errorf("rdb: sniffing snapshot header: %w", err)
	}

	switch {
	case hasPrefix(sniff, gzipMagic):
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("rdb: opening gzip snapshot: %w", err)
		}
		return &snapshotReader{Reader: gz, file: f, closer: gz}, nil

	case hasPrefix(sniff, zstdMagic):
		dec, err := zstd.NewReader(buffered)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("rdb: opening zstd snapshot: %w", err)
		}
		rc := dec.IOReadCloser()
		return &snapshotReader{Reader: rc, file: f, closer: rc}, nil

	case hasPrefix(sniff, lz4Magic):
		return &snapshotReader{Reader: lz4.NewReader(buffered), file: f}, nil

	default:
		return &snapshotReader{Reader: buffered, file: f}, nil
	}
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if b[i] != p {
			return false
		}
	}
	return true
}

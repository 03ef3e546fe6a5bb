package rdbsnap

import (
	"bufio"
	"encoding/binary"
	"io"
)

// byteReader wraps a sequential byte source with the fixed-width integer
// reads the decoder needs, tracking a byte offset for error diagnostics.
// The packed-container decoders build a second byteReader over an
// in-memory byte slice to parse a container's interior (spec §4.A).
type byteReader struct {
	r      *bufio.Reader
	offset int64
}

func newByteReader(r io.Reader) *byteReader {
	if br, ok := r.(*bufio.Reader); ok {
		return &byteReader{r: br}
	}
	return &byteReader{r: bufio.NewReader(r)}
}

func newByteReaderBytes(b []byte) *byteReader {
	return &byteReader{r: bufio.NewReader(&sliceReader{b: b})}
}

// sliceReader avoids pulling in bytes.Reader just to note it's a slice view;
// bytes.Reader would do fine too, this keeps the wrapper explicit about
// operating on an already-materialized buffer (spec §5: packed containers
// are parsed from a single pre-read byte buffer, never streamed).
type sliceReader struct {
	b []byte
	i int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.i >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.i:])
	s.i += n
	return n, nil
}

func (br *byteReader) fill(buf []byte) error {
	n, err := io.ReadFull(br.r, buf)
	br.offset += int64(n)
	if err != nil {
		return newErr(UnexpectedEOF, br.offset, "", "short read", err)
	}
	return nil
}

func (br *byteReader) readU8() (uint8, error) {
	var buf [1]byte
	if err := br.fill(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (br *byteReader) readI8() (int8, error) {
	u, err := br.readU8()
	return int8(u), err
}

func (br *byteReader) readU16LE() (uint16, error) {
	var buf [2]byte
	if err := br.fill(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (br *byteReader) readI16LE() (int16, error) {
	u, err := br.readU16LE()
	return int16(u), err
}

func (br *byteReader) readU32LE() (uint32, error) {
	var buf [4]byte
	if err := br.fill(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (br *byteReader) readI32LE() (int32, error) {
	u, err := br.readU32LE()
	return int32(u), err
}

func (br *byteReader) readU32BE() (uint32, error) {
	var buf [4]byte
	if err := br.fill(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (br *byteReader) readU64LE() (uint64, error) {
	var buf [8]byte
	if err := br.fill(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (br *byteReader) readI64LE() (int64, error) {
	u, err := br.readU64LE()
	return int64(u), err
}

// read24BitSigned reads a 3-byte little-endian sequence, sign-extended to
// a full 32-bit signed integer: assemble the 24-bit value, left-shift it
// into the top of a word, then arithmetically shift right by 8 so the
// original top byte carries the sign (spec §4.A).
func (br *byteReader) read24BitSigned() (int32, error) {
	var buf [3]byte
	if err := br.fill(buf[:]); err != nil {
		return 0, err
	}
	v := int32(buf[0]) | int32(buf[1])<<8 | int32(buf[2])<<16
	return (v << 8) >> 8, nil
}

func (br *byteReader) skip(n int) error {
	if n <= 0 {
		return nil
	}
	written, err := io.CopyN(io.Discard, br.r, int64(n))
	br.offset += written
	if err != nil {
		return newErr(UnexpectedEOF, br.offset, "", "short skip", err)
	}
	return nil
}

func (br *byteReader) readN(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if err := br.fill(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

package rdbsnap

import "strconv"

// zipmapLengthEnd is the sentinel byte terminating a zipmap, returned in
// place of a length by readZipmapLength.
const zipmapLengthEnd = -1

// parseZipmap decodes a zipmap-packed raw string into field/value pairs
// (spec §4.D). This legacy hash encoding predates ziplist and ships no
// Go reference in the teacher tool (Dragonfly never emits it); it's
// grounded directly on the original decoder's read_zipmap /
// read_zipmap_next_length.
func parseZipmap(raw []byte) ([][2]Value, error) {
	br := newByteReaderBytes(raw)

	// One-byte entry count; advisory only — the true terminator is the
	// 0xFF end-of-zipmap byte encountered while reading lengths.
	if _, err := br.readU8(); err != nil {
		return nil, err
	}

	var pairs [][2]Value
	for {
		keyLen, err := readZipmapLength(br)
		if err != nil {
			return nil, err
		}
		if keyLen == zipmapLengthEnd {
			break
		}
		key, err := br.readN(int(keyLen))
		if err != nil {
			return nil, err
		}

		valLen, err := readZipmapLength(br)
		if err != nil {
			return nil, err
		}
		if valLen == zipmapLengthEnd {
			return nil, newErr(CorruptZipmap, br.offset, "", "zipmap ended before value", nil)
		}

		free, err := br.readU8()
		if err != nil {
			return nil, err
		}
		val, err := br.readN(int(valLen))
		if err != nil {
			return nil, err
		}
		if err := br.skip(int(free)); err != nil {
			return nil, err
		}

		pairs = append(pairs, [2]Value{bytesValue(key), zipmapValue(val)})
	}

	return pairs, nil
}

// readZipmapLength decodes one zipmap length byte: n < 254 is the
// length itself, n == 254 means a 4-byte little-endian length follows,
// and n == 255 is the zipmap-end sentinel.
func readZipmapLength(br *byteReader) (int64, error) {
	n, err := br.readU8()
	if err != nil {
		return 0, err
	}
	switch {
	case n < 254:
		return int64(n), nil
	case n == 254:
		v, err := br.readU32LE()
		if err != nil {
			return 0, err
		}
		return int64(v), nil
	default: // 255
		return zipmapLengthEnd, nil
	}
}

// zipmapValue reports a zipmap value as an integer when it parses
// cleanly as a decimal, else as a raw string (spec §4.D).
func zipmapValue(raw []byte) Value {
	if i, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		return intValue(i)
	}
	return bytesValue(raw)
}

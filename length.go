package rdbsnap

// readLengthWithEncoding decodes the length-with-encoding prefix (spec
// §4.C). The top two bits of the first byte select one of four classes;
// isEncoded reports whether the remaining low 6 bits name a special
// sub-encoding (int8/int16/int32/LZF) rather than a plain length.
func (br *byteReader) readLengthWithEncoding() (length uint64, isEncoded bool, err error) {
	b0, err := br.readU8()
	if err != nil {
		return 0, false, err
	}

	switch b0 >> 6 {
	case 0b00:
		return uint64(b0 & 0x3F), false, nil

	case 0b01:
		b1, err := br.readU8()
		if err != nil {
			return 0, false, err
		}
		return (uint64(b0&0x3F) << 8) | uint64(b1), false, nil

	case 0b10:
		// Read four bytes as a big-endian u32 (spec §4.C note: equivalent
		// to reading little-endian then byte-swapping; we just read
		// big-endian directly). Low 6 bits of b0 are discarded.
		v, err := br.readU32BE()
		if err != nil {
			return 0, false, err
		}
		return uint64(v), false, nil

	default: // 0b11
		return uint64(b0 & 0x3F), true, nil
	}
}

func (br *byteReader) readLength() (uint64, error) {
	n, _, err := br.readLengthWithEncoding()
	return n, err
}

// readString decodes a dump-format string: raw bytes, a short integer
// encoding (rendered to its decimal textual form per spec §4.C), or an
// LZF-compressed run (spec §4.B).
func (br *byteReader) readString() (Value, error) {
	length, isEncoded, err := br.readLengthWithEncoding()
	if err != nil {
		return Value{}, err
	}

	if !isEncoded {
		if length == 0 {
			return bytesValue(nil), nil
		}
		buf, err := br.readN(int(length))
		if err != nil {
			return Value{}, err
		}
		return bytesValue(buf), nil
	}

	switch length {
	case encInt8:
		v, err := br.readI8()
		if err != nil {
			return Value{}, err
		}
		return intValue(int64(v)), nil

	case encInt16:
		v, err := br.readI16LE()
		if err != nil {
			return Value{}, err
		}
		return intValue(int64(v)), nil

	case encInt32:
		v, err := br.readI32LE()
		if err != nil {
			return Value{}, err
		}
		return intValue(int64(v)), nil

	case encLZF:
		clen, err := br.readLength()
		if err != nil {
			return Value{}, err
		}
		ulen, err := br.readLength()
		if err != nil {
			return Value{}, err
		}
		compressed, err := br.readN(int(clen))
		if err != nil {
			return Value{}, err
		}
		plain, err := lzfDecompress(compressed, int(ulen))
		if err != nil {
			return Value{}, err
		}
		return bytesValue(plain), nil

	default:
		return Value{}, newErr(UnknownType, br.offset, "", "unknown special string encoding", nil)
	}
}

// skipString consumes the same bytes readString would, without
// materializing them — used by the driver when a filter rejects the
// current key (spec §4.C, §4.E "filter emission/skip duality").
func (br *byteReader) skipString() error {
	length, isEncoded, err := br.readLengthWithEncoding()
	if err != nil {
		return err
	}

	if !isEncoded {
		return br.skip(int(length))
	}

	switch length {
	case encInt8:
		return br.skip(1)
	case encInt16:
		return br.skip(2)
	case encInt32:
		return br.skip(4)
	case encLZF:
		clen, err := br.readLength()
		if err != nil {
			return err
		}
		if _, err := br.readLength(); err != nil { // ulen, unused when skipping
			return err
		}
		return br.skip(int(clen))
	default:
		return newErr(UnknownType, br.offset, "", "unknown special string encoding", nil)
	}
}

package rdbsnap

// lzfDecompress implements LZF decompression (spec §4.B), grounded on the
// reference decoder's lzf_decompress: a control byte either introduces a
// run of literals (ctrl < 32) or a back-reference (ctrl >= 32) whose
// length and distance are packed into the control byte plus one or two
// trailing bytes. Back-references may overlap the bytes they're still
// writing, so the copy must proceed byte-by-byte rather than via a bulk
// slice copy.
func lzfDecompress(src []byte, expectedLen int) ([]byte, error) {
	out := make([]byte, 0, expectedLen)
	i := 0
	for i < len(src) {
		ctrl := int(src[i])
		i++

		if ctrl < 32 {
			n := ctrl + 1
			if i+n > len(src) {
				return nil, newErr(CorruptLZF, int64(i), "", "literal run exceeds input", nil)
			}
			out = append(out, src[i:i+n]...)
			i += n
			continue
		}

		length := ctrl >> 5
		if length == 7 {
			if i >= len(src) {
				return nil, newErr(CorruptLZF, int64(i), "", "truncated length extension", nil)
			}
			length += int(src[i])
			i++
		}

		if i >= len(src) {
			return nil, newErr(CorruptLZF, int64(i), "", "truncated back-reference", nil)
		}
		b2 := int(src[i])
		i++

		dist := ((ctrl & 0x1F) << 8) | b2
		dist++

		ref := len(out) - dist
		if ref < 0 {
			return nil, newErr(CorruptLZF, int64(i), "", "back-reference before start of output", nil)
		}

		for n := 0; n < length+2; n++ {
			out = append(out, out[ref])
			ref++
		}
	}

	if len(out) != expectedLen {
		return nil, newErr(CorruptLZF, int64(len(src)), "", "decompressed length mismatch", nil)
	}
	return out, nil
}

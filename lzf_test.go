package rdbsnap

import (
	"bytes"
	"errors"
	"testing"
)

func TestLZFDecompressLiteralRun(t *testing.T) {
	// ctrl=4 means a literal run of 5 bytes.
	src := append([]byte{0x04}, []byte("hello")...)
	got, err := lzfDecompress(src, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("got %q", got)
	}
}

func TestLZFDecompressBackReference(t *testing.T) {
	// "abc" as a 3-byte literal run, then a back-reference copying those
	// same 3 bytes again to produce "abcabc".
	src := []byte{0x02, 'a', 'b', 'c', 0x20, 0x02}
	got, err := lzfDecompress(src, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, []byte("abcabc")) {
		t.Fatalf("got %q", got)
	}
}

func TestLZFDecompressLengthMismatchIsCorrupt(t *testing.T) {
	src := append([]byte{0x04}, []byte("hello")...)
	_, err := lzfDecompress(src, 4)
	var de *DecodeError
	if !errors.As(err, &de) || de.Kind != CorruptLZF {
		t.Fatalf("want CorruptLZF, got %v", err)
	}
}

func TestLZFDecompressTruncatedLiteralIsCorrupt(t *testing.T) {
	// ctrl=4 claims 5 literal bytes follow; only 2 are present.
	src := []byte{0x04, 'h', 'i'}
	_, err := lzfDecompress(src, 5)
	var de *DecodeError
	if !errors.As(err, &de) || de.Kind != CorruptLZF {
		t.Fatalf("want CorruptLZF, got %v", err)
	}
}

func TestLZFDecompressBackReferenceBeforeStartIsCorrupt(t *testing.T) {
	// A back-reference as the very first token has nothing to point at.
	src := []byte{0x20, 0x00}
	_, err := lzfDecompress(src, 2)
	var de *DecodeError
	if !errors.As(err, &de) || de.Kind != CorruptLZF {
		t.Fatalf("want CorruptLZF, got %v", err)
	}
}

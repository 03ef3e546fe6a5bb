package rdbsnap

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseZipmapBasicRecordWithFreePadding(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x01) // advisory entry count
	buf.WriteByte(0x03) // key length
	buf.Write([]byte("foo"))
	buf.WriteByte(0x03) // value length
	buf.WriteByte(0x02) // free padding bytes following the value
	buf.Write([]byte("bar"))
	buf.Write([]byte{0x00, 0x00}) // padding
	buf.WriteByte(0xFF)           // end of zipmap

	pairs, err := parseZipmap(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs", len(pairs))
	}
	if string(pairs[0][0].Bytes) != "foo" {
		t.Fatalf("key = %q", pairs[0][0].Bytes)
	}
	if string(pairs[0][1].Bytes) != "bar" {
		t.Fatalf("value = %q", pairs[0][1].Bytes)
	}
}

func TestParseZipmapNumericValueDecodesAsInt(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x01)
	buf.WriteByte(0x03)
	buf.Write([]byte("age"))
	buf.WriteByte(0x02)
	buf.WriteByte(0x00)
	buf.Write([]byte("42"))
	buf.WriteByte(0xFF)

	pairs, err := parseZipmap(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pairs[0][1].Kind != KindInt || pairs[0][1].Int != 42 {
		t.Fatalf("value = %+v", pairs[0][1])
	}
}

func TestParseZipmapExtendedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x01)
	buf.WriteByte(254) // extended key length marker
	buf.Write(u32le(3))
	buf.Write([]byte("foo"))
	buf.WriteByte(0x03)
	buf.WriteByte(0x00)
	buf.Write([]byte("bar"))
	buf.WriteByte(0xFF)

	pairs, err := parseZipmap(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(pairs[0][0].Bytes) != "foo" {
		t.Fatalf("key = %q", pairs[0][0].Bytes)
	}
}

func TestParseZipmapEndsBeforeValueIsCorrupt(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x01)
	buf.WriteByte(0x03)
	buf.Write([]byte("foo"))
	buf.WriteByte(0xFF) // sentinel where a value length was expected

	_, err := parseZipmap(buf.Bytes())
	var de *DecodeError
	if !errors.As(err, &de) || de.Kind != CorruptZipmap {
		t.Fatalf("want CorruptZipmap, got %v", err)
	}
}

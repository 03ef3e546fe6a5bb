package rdbsnap_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"rdbsnap"
	"rdbsnap/sink/recorder"
)

func header(version string) []byte {
	return append([]byte("REDIS"), []byte(version)...)
}

func parse(t *testing.T, raw []byte) *recorder.Recorder {
	t.Helper()
	rec := recorder.New()
	p := rdbsnap.NewParser(rec, nil)
	if err := p.ParseReader(bytes.NewReader(raw)); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	return rec
}

func kindsOf(rec *recorder.Recorder) []string {
	kinds := make([]string, len(rec.Records))
	for i, r := range rec.Records {
		kinds[i] = r.Kind
	}
	return kinds
}

func TestScenarioEmptyDB0(t *testing.T) {
	raw := append(header("0006"), 0xFE, 0x00, 0xFF)
	rec := parse(t, raw)

	want := []string{"start_rdb", "start_database", "end_database", "end_rdb"}
	got := kindsOf(rec)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestScenarioOneString(t *testing.T) {
	raw := append(header("0006"), 0xFE, 0x00)
	raw = append(raw, 0x00)                          // typeString tag
	raw = append(raw, 0x03, 'f', 'o', 'o')            // key "foo"
	raw = append(raw, 0x03, 'b', 'a', 'r')            // value "bar"
	raw = append(raw, 0xFF)

	rec := parse(t, raw)
	want := []string{"start_rdb", "start_database", "set", "end_database", "end_rdb"}
	if got := kindsOf(rec); !equalStrings(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	setRec := rec.Records[2]
	if setRec.Key != "foo" || setRec.Value != "bar" || setRec.Expiry != nil || setRec.Encoding != "string" {
		t.Fatalf("set record = %+v", setRec)
	}
}

func TestScenarioExpiredString(t *testing.T) {
	raw := append(header("0006"), 0xFE, 0x00)
	raw = append(raw, 0xFD, 0x00, 0x00, 0x00, 0x00) // EXPIRETIME (seconds), epoch 0
	raw = append(raw, 0x00, 0x03, 'f', 'o', 'o', 0x03, 'b', 'a', 'r')
	raw = append(raw, 0xFF)

	rec := parse(t, raw)
	setRec := rec.Records[2]
	if setRec.Kind != "set" || setRec.Expiry == nil {
		t.Fatalf("expected a set record with an expiry, got %+v", setRec)
	}
	if !setRec.Expiry.Equal(time.Unix(0, 0).UTC()) {
		t.Fatalf("expiry = %v, want epoch zero", setRec.Expiry)
	}
}

func TestScenarioFarFutureMillisecondExpiry(t *testing.T) {
	raw := append(header("0006"), 0xFE, 0x00)
	raw = append(raw, 0xFC, 0x00, 0x00, 0xB0, 0x93, 0x35, 0x02, 0x00, 0x00) // EXPIRETIME_MS
	raw = append(raw, 0x00, 0x03, 'f', 'o', 'o', 0x03, 'b', 'a', 'r')
	raw = append(raw, 0xFF)

	rec := parse(t, raw)
	setRec := rec.Records[2]
	if setRec.Expiry == nil {
		t.Fatal("expected a non-nil expiry")
	}
	if setRec.Expiry.Year() < 2030 {
		t.Fatalf("expected a far-future expiry, got %v", setRec.Expiry)
	}
}

func TestScenarioIntegerEncodedStringValue(t *testing.T) {
	raw := append(header("0006"), 0xFE, 0x00)
	raw = append(raw, 0x00, 0x03, 'f', 'o', 'o', 0xC0, 0x2A)
	raw = append(raw, 0xFF)

	rec := parse(t, raw)
	setRec := rec.Records[2]
	if setRec.Value != int64(42) {
		t.Fatalf("value = %v (%T), want int64(42)", setRec.Value, setRec.Value)
	}
}

func TestScenarioIntsetThreeEntries(t *testing.T) {
	raw := append(header("0006"), 0xFE, 0x00)
	raw = append(raw, 0x0B, 0x01, 'k') // typeSetIntset tag, key "k"
	intsetBody := []byte{
		0x02, 0x00, 0x00, 0x00, // encoding width 2
		0x03, 0x00, 0x00, 0x00, // 3 entries
		0x01, 0x00, 0x02, 0x00, 0x03, 0x00, // 1, 2, 3
	}
	raw = append(raw, byte(len(intsetBody)))
	raw = append(raw, intsetBody...)
	raw = append(raw, 0xFF)

	rec := parse(t, raw)
	want := []string{"start_rdb", "start_database", "start_set", "sadd", "sadd", "sadd", "end_set", "end_database", "end_rdb"}
	if got := kindsOf(rec); !equalStrings(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	startSet := rec.Records[2]
	if startSet.Key != "k" || startSet.Length != 3 || startSet.Encoding != "intset" {
		t.Fatalf("start_set record = %+v", startSet)
	}
	for i, want := range []int64{1, 2, 3} {
		got := rec.Records[3+i]
		if got.Member != want {
			t.Fatalf("sadd %d = %v, want %d", i, got.Member, want)
		}
	}
}

func TestScenarioInvalidVersion(t *testing.T) {
	raw := append(header("0007"), 0xFE, 0x00, 0xFF)
	rec := recorder.New()
	p := rdbsnap.NewParser(rec, nil)
	err := p.ParseReader(bytes.NewReader(raw))
	if err == nil {
		t.Fatal("expected an error for an out-of-range header version")
	}
	var de *rdbsnap.DecodeError
	if !errors.As(err, &de) || de.Kind != rdbsnap.InvalidVersion {
		t.Fatalf("want InvalidVersion, got %v", err)
	}
}

func TestScenarioInvalidMagic(t *testing.T) {
	raw := append([]byte("XXXXX0006"), 0xFE, 0x00, 0xFF)
	rec := recorder.New()
	p := rdbsnap.NewParser(rec, nil)
	err := p.ParseReader(bytes.NewReader(raw))
	var de *rdbsnap.DecodeError
	if !errors.As(err, &de) || de.Kind != rdbsnap.InvalidMagic {
		t.Fatalf("want InvalidMagic, got %v", err)
	}
}

func TestFilterRejectsKeyButConsumesSameBytes(t *testing.T) {
	raw := append(header("0006"), 0xFE, 0x00)
	raw = append(raw, 0x00, 0x03, 'f', 'o', 'o', 0x03, 'b', 'a', 'r')
	raw = append(raw, 0xFF)

	filter, err := rdbsnap.NewFilter(rdbsnap.FilterConfig{Keys: "^nomatch"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := recorder.New()
	p := rdbsnap.NewParser(rec, filter)
	if err := p.ParseReader(bytes.NewReader(raw)); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	want := []string{"start_rdb", "start_database", "end_database", "end_rdb"}
	if got := kindsOf(rec); !equalStrings(got, want) {
		t.Fatalf("got %v, want %v (key should be skipped, not fail the parse)", got, want)
	}
}

func TestSortedSetSentinelScoreIsUnsupported(t *testing.T) {
	raw := append(header("0006"), 0xFE, 0x00)
	raw = append(raw, 0x03)      // typeZSet tag
	raw = append(raw, 0x01, 'z') // key "z"
	raw = append(raw, 0x01)      // zset length = 1
	raw = append(raw, 0x01, 'm') // member "m"
	raw = append(raw, 253)       // sentinel score length
	raw = append(raw, 0xFF)

	rec := recorder.New()
	p := rdbsnap.NewParser(rec, nil)
	err := p.ParseReader(bytes.NewReader(raw))
	var de *rdbsnap.DecodeError
	if !errors.As(err, &de) || de.Kind != rdbsnap.UnsupportedScore {
		t.Fatalf("want UnsupportedScore, got %v", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package rdbsnap

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"
)

// magic is the fixed 5-byte header tag (spec §3; compared byte-for-byte,
// not as a string against a rune literal — spec §9 open question 2).
var magic = [5]byte{'R', 'E', 'D', 'I', 'S'}

// withKey attaches the in-flight key to a *DecodeError that doesn't
// already carry one, so a short read deep inside a container reader
// still points at the record that triggered it (spec §7).
func withKey(err error, key string) error {
	var de *DecodeError
	if key != "" && errors.As(err, &de) && de.Key == "" {
		de.Key = key
	}
	return err
}

// Parser drives the state machine described in spec §4.E: verify the
// header, then loop reading opcodes until end-of-file, dispatching type
// tags to per-type readers and routing every key through the filter.
type Parser struct {
	sink   Sink
	filter *Filter
}

// NewParser builds a parser bound to a sink and an optional filter (nil
// filter accepts everything).
func NewParser(sink Sink, filter *Filter) *Parser {
	return &Parser{sink: sink, filter: filter}
}

// Parse opens path read-only, drives the parser to completion or
// failure, and closes the file on every exit path (spec §6).
func (p *Parser) Parse(path string) error {
	return p.ParseContext(context.Background(), path)
}

// ParseContext is Parse with a context checked between top-level
// entries — never mid-element, since no operation here is cancellable
// partway through (spec §5).
func (p *Parser) ParseContext(ctx context.Context, path string) error {
	r, err := OpenSnapshot(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return p.parseReader(ctx, r)
}

// ParseReader drives the parser over an already-open byte source, e.g.
// one prepared by the caller instead of by OpenSnapshot.
func (p *Parser) ParseReader(r io.Reader) error {
	return p.parseReader(context.Background(), r)
}

type parseState struct {
	br        *byteReader
	currentDB int
	haveDB    bool
	expiry    *time.Time
}

func (p *Parser) parseReader(ctx context.Context, r io.Reader) error {
	br := newByteReader(r)

	if err := p.verifyHeader(br); err != nil {
		return err
	}

	p.sink.StartRDB()

	st := &parseState{br: br}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		st.expiry = nil

		opcode, err := br.readU8()
		if err != nil {
			return err
		}

		done, err := p.dispatch(st, opcode)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (p *Parser) verifyHeader(br *byteReader) error {
	buf, err := br.readN(5)
	if err != nil {
		return err
	}
	var got [5]byte
	copy(got[:], buf)
	if got != magic {
		return newErr(InvalidMagic, br.offset, "", "bad header magic", nil)
	}

	verBuf, err := br.readN(4)
	if err != nil {
		return err
	}
	version, convErr := strconv.Atoi(string(verBuf))
	if convErr != nil || version < 1 || version > 6 {
		return newErr(InvalidVersion, br.offset, "", "header version outside [1,6]", convErr)
	}
	return nil
}

// dispatch handles one opcode, returning done=true once EOF is reached.
func (p *Parser) dispatch(st *parseState, opcode byte) (done bool, err error) {
	switch opcode {
	case opExpireMS:
		ms, err := st.br.readU64LE()
		if err != nil {
			return false, err
		}
		t := time.UnixMicro(int64(ms) * 1000)
		st.expiry = &t
		next, err := st.br.readU8()
		if err != nil {
			return false, err
		}
		return p.dispatch(st, next)

	case opExpireSec:
		sec, err := st.br.readU32LE()
		if err != nil {
			return false, err
		}
		t := time.UnixMicro(int64(sec) * 1_000_000)
		st.expiry = &t
		next, err := st.br.readU8()
		if err != nil {
			return false, err
		}
		return p.dispatch(st, next)

	case opSelectDB:
		if st.haveDB {
			p.sink.EndDatabase(st.currentDB)
		}
		idx, err := st.br.readLength()
		if err != nil {
			return false, err
		}
		st.currentDB = int(idx)
		st.haveDB = true
		p.sink.StartDatabase(st.currentDB)
		return false, nil

	case opEOF:
		if st.haveDB {
			p.sink.EndDatabase(st.currentDB)
		}
		p.sink.EndRDB()
		return true, nil

	default:
		return false, p.readKeyValue(st, opcode)
	}
}

// readKeyValue reads one (key, value) pair for the given type tag
// (spec §3, §4.E). Both the emit and skip paths consume byte-for-byte
// the same region of the stream.
func (p *Parser) readKeyValue(st *parseState, tag byte) error {
	typ, known := logicalTypeOf(tag)
	if !known {
		return newErr(UnknownType, st.br.offset, "", "unrecognized type tag", nil)
	}

	if !p.filter.AcceptDB(st.currentDB) {
		if err := st.br.skipString(); err != nil { // key
			return err
		}
		return p.skipValue(st, "", tag)
	}

	keyVal, err := st.br.readString()
	if err != nil {
		return err
	}
	key := keyVal.String()

	if !p.filter.Accept(st.currentDB, key, typ) {
		return p.skipValue(st, key, tag)
	}

	return p.readValue(st, key, tag)
}

func (p *Parser) readValue(st *parseState, key string, tag byte) error {
	switch tag {
	case typeString:
		v, err := st.br.readString()
		if err != nil {
			return withKey(err, key)
		}
		p.sink.Set(key, v, st.expiry, Info{Encoding: "string"})
		return nil

	case typeList:
		return p.readLinkedList(st, key)
	case typeSet:
		return p.readHashtableSet(st, key)
	case typeZSet:
		return p.readSkiplistZSet(st, key)
	case typeHash:
		return p.readHashtableHash(st, key)

	case typeHashZip:
		return p.readZipmapHash(st, key)
	case typeListZip:
		return p.readZiplistList(st, key)
	case typeSetIntset:
		return p.readIntsetSet(st, key)
	case typeZSetZip:
		return p.readZiplistZSet(st, key)
	case typeHashZip2:
		return p.readZiplistHash(st, key)

	default:
		return newErr(UnknownType, st.br.offset, key, "unrecognized type tag", nil)
	}
}

func (p *Parser) readLinkedList(st *parseState, key string) error {
	n, err := st.br.readLength()
	if err != nil {
		return withKey(err, key)
	}
	p.sink.StartList(key, int64(n), st.expiry, Info{Encoding: "linkedlist"})
	for i := uint64(0); i < n; i++ {
		v, err := st.br.readString()
		if err != nil {
			return withKey(err, key)
		}
		p.sink.RPush(key, v)
	}
	p.sink.EndList(key)
	return nil
}

func (p *Parser) readHashtableSet(st *parseState, key string) error {
	n, err := st.br.readLength()
	if err != nil {
		return withKey(err, key)
	}
	p.sink.StartSet(key, int64(n), st.expiry, Info{Encoding: "hashtable"})
	for i := uint64(0); i < n; i++ {
		v, err := st.br.readString()
		if err != nil {
			return withKey(err, key)
		}
		p.sink.SAdd(key, v)
	}
	p.sink.EndSet(key)
	return nil
}

func (p *Parser) readHashtableHash(st *parseState, key string) error {
	n, err := st.br.readLength()
	if err != nil {
		return withKey(err, key)
	}
	p.sink.StartHash(key, int64(n), st.expiry, Info{Encoding: "hashtable"})
	for i := uint64(0); i < n; i++ {
		field, err := st.br.readString()
		if err != nil {
			return withKey(err, key)
		}
		value, err := st.br.readString()
		if err != nil {
			return withKey(err, key)
		}
		p.sink.HSet(key, field, value)
	}
	p.sink.EndHash(key)
	return nil
}

// readSkiplistZSet reads the non-packed sorted set encoding: member
// string, then a one-byte length L followed by L ASCII score bytes
// (spec §4.E). Sentinel lengths (253/254/255, which in some deployed
// variants denote +inf/-inf/NaN) are not handled here — see DESIGN.md
// for why this decoder surfaces UnsupportedScore instead of guessing.
func (p *Parser) readSkiplistZSet(st *parseState, key string) error {
	n, err := st.br.readLength()
	if err != nil {
		return withKey(err, key)
	}
	p.sink.StartSortedSet(key, int64(n), st.expiry, Info{Encoding: "skiplist"})
	for i := uint64(0); i < n; i++ {
		member, err := st.br.readString()
		if err != nil {
			return withKey(err, key)
		}
		score, err := p.readScore(st, key)
		if err != nil {
			return withKey(err, key)
		}
		p.sink.ZAdd(key, member, score)
	}
	p.sink.EndSortedSet(key)
	return nil
}

func (p *Parser) readScore(st *parseState, key string) (float64, error) {
	l, err := st.br.readU8()
	if err != nil {
		return 0, withKey(err, key)
	}
	if l >= 253 {
		// Sentinel markers for +inf/-inf/NaN in some real-world variants
		// (spec §9 open question 1); this decoder declines to guess.
		return 0, newErr(UnsupportedScore, st.br.offset, key, "sentinel score length not supported", nil)
	}
	buf, err := st.br.readN(int(l))
	if err != nil {
		return 0, withKey(err, key)
	}
	f, convErr := strconv.ParseFloat(string(buf), 64)
	if convErr != nil {
		return 0, newErr(UnsupportedScore, st.br.offset, key, "score is not valid ASCII float", convErr)
	}
	return f, nil
}

func (p *Parser) readZipmapHash(st *parseState, key string) error {
	raw, err := st.br.readString()
	if err != nil {
		return withKey(err, key)
	}
	pairs, err := parseZipmap(raw.Bytes)
	if err != nil {
		return withKey(err, key)
	}
	p.sink.StartHash(key, int64(len(pairs)), st.expiry, Info{Encoding: "zipmap", SizeOfValue: len(raw.Bytes)})
	for _, kv := range pairs {
		p.sink.HSet(key, kv[0], kv[1])
	}
	p.sink.EndHash(key)
	return nil
}

func (p *Parser) readZiplistList(st *parseState, key string) error {
	raw, err := st.br.readString()
	if err != nil {
		return withKey(err, key)
	}
	entries, err := parseZiplist(raw.Bytes)
	if err != nil {
		return withKey(err, key)
	}
	p.sink.StartList(key, int64(len(entries)), st.expiry, Info{Encoding: "ziplist", SizeOfValue: len(raw.Bytes)})
	for _, v := range entries {
		p.sink.RPush(key, v)
	}
	p.sink.EndList(key)
	return nil
}

func (p *Parser) readIntsetSet(st *parseState, key string) error {
	raw, err := st.br.readString()
	if err != nil {
		return withKey(err, key)
	}
	members, err := parseIntset(raw.Bytes)
	if err != nil {
		return withKey(err, key)
	}
	p.sink.StartSet(key, int64(len(members)), st.expiry, Info{Encoding: "intset", SizeOfValue: len(raw.Bytes)})
	for _, v := range members {
		p.sink.SAdd(key, v)
	}
	p.sink.EndSet(key)
	return nil
}

func (p *Parser) readZiplistZSet(st *parseState, key string) error {
	raw, err := st.br.readString()
	if err != nil {
		return withKey(err, key)
	}
	pairs, err := parsePairedZiplist(raw.Bytes)
	if err != nil {
		return withKey(err, key)
	}
	p.sink.StartSortedSet(key, int64(len(pairs)), st.expiry, Info{Encoding: "ziplist", SizeOfValue: len(raw.Bytes)})
	for _, mv := range pairs {
		member, score := mv[0], mv[1]
		p.sink.ZAdd(key, member, scoreOf(score))
	}
	p.sink.EndSortedSet(key)
	return nil
}

func (p *Parser) readZiplistHash(st *parseState, key string) error {
	raw, err := st.br.readString()
	if err != nil {
		return withKey(err, key)
	}
	pairs, err := parsePairedZiplist(raw.Bytes)
	if err != nil {
		return withKey(err, key)
	}
	p.sink.StartHash(key, int64(len(pairs)), st.expiry, Info{Encoding: "ziplist", SizeOfValue: len(raw.Bytes)})
	for _, fv := range pairs {
		p.sink.HSet(key, fv[0], fv[1])
	}
	p.sink.EndHash(key)
	return nil
}

// scoreOf converts a ziplist-backed zset's score entry to a float64: if
// the entry decoded as a packed integer, use it as-is; if it decoded as
// a raw string, parse it as ASCII (spec §4.D).
func scoreOf(v Value) float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.Int)
	case KindFloat:
		return v.Float
	default:
		f, _ := strconv.ParseFloat(string(v.Bytes), 64)
		return f
	}
}

// skipValue consumes a value's bytes without materializing them or
// invoking sink callbacks (spec §4.E, §4.C skip-string; §8 byte-for-byte
// equivalence property between the emit and skip paths).
func (p *Parser) skipValue(st *parseState, key string, tag byte) error {
	switch tag {
	case typeString:
		return withKey(st.br.skipString(), key)

	case typeList, typeSet:
		n, err := st.br.readLength()
		if err != nil {
			return withKey(err, key)
		}
		for i := uint64(0); i < n; i++ {
			if err := st.br.skipString(); err != nil {
				return withKey(err, key)
			}
		}
		return nil

	case typeHash:
		n, err := st.br.readLength()
		if err != nil {
			return withKey(err, key)
		}
		for i := uint64(0); i < 2*n; i++ {
			if err := st.br.skipString(); err != nil {
				return withKey(err, key)
			}
		}
		return nil

	case typeZSet:
		n, err := st.br.readLength()
		if err != nil {
			return withKey(err, key)
		}
		for i := uint64(0); i < n; i++ {
			if err := st.br.skipString(); err != nil { // member
				return withKey(err, key)
			}
			l, err := st.br.readU8()
			if err != nil {
				return withKey(err, key)
			}
			if l >= 253 {
				return newErr(UnsupportedScore, st.br.offset, key, "sentinel score length not supported", nil)
			}
			if err := st.br.skip(int(l)); err != nil {
				return withKey(err, key)
			}
		}
		return nil

	case typeHashZip, typeListZip, typeSetIntset, typeZSetZip, typeHashZip2:
		// All packed containers are stored as a single length-prefixed
		// string at this level; skipping it skips the whole container.
		return withKey(st.br.skipString(), key)

	default:
		return newErr(UnknownType, st.br.offset, key, "unrecognized type tag", nil)
	}
}

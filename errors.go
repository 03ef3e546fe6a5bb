package rdbsnap

import "fmt"

// Kind classifies a decode failure. See spec §7.
type Kind int

const (
	// InvalidMagic means the header's first 5 bytes are not the expected tag.
	InvalidMagic Kind = iota
	// InvalidVersion means the header version is outside [1, 6].
	InvalidVersion
	// UnexpectedEOF means the byte source ran short of a requested read.
	UnexpectedEOF
	// UnknownType means a top-level byte is neither a known opcode nor a known type tag.
	UnknownType
	// CorruptLZF means a decompressed LZF run didn't match its declared length.
	CorruptLZF
	// CorruptIntset means an intset's encoding width field wasn't 2, 4, or 8.
	CorruptIntset
	// CorruptZiplist means a ziplist terminator or entry header was invalid,
	// or a paired container (zset/hash) held an odd element count.
	CorruptZiplist
	// CorruptZipmap means a zipmap record ended prematurely.
	CorruptZipmap
	// UnsupportedScore means a sorted-set score used a sentinel length (253/254/255)
	// this decoder declines to interpret, or its bytes did not parse as a float;
	// see DESIGN.md for the open-question decision.
	UnsupportedScore
)

func (k Kind) String() string {
	switch k {
	case InvalidMagic:
		return "InvalidMagic"
	case InvalidVersion:
		return "InvalidVersion"
	case UnexpectedEOF:
		return "UnexpectedEOF"
	case UnknownType:
		return "UnknownType"
	case CorruptLZF:
		return "CorruptLZF"
	case CorruptIntset:
		return "CorruptIntset"
	case CorruptZiplist:
		return "CorruptZiplist"
	case CorruptZipmap:
		return "CorruptZipmap"
	case UnsupportedScore:
		return "UnsupportedScore"
	default:
		return "Unknown"
	}
}

// DecodeError is the error type every decode failure surfaces as.
// It carries the key in flight (when known) so a caller can tell which
// record of a large dump tripped the parser.
type DecodeError struct {
	Kind   Kind
	Key    string
	Offset int64
	Msg    string
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Key != "" {
		if e.Cause != nil {
			return fmt.Sprintf("rdb: %s at offset %d (key %q): %s: %v", e.Kind, e.Offset, e.Key, e.Msg, e.Cause)
		}
		return fmt.Sprintf("rdb: %s at offset %d (key %q): %s", e.Kind, e.Offset, e.Key, e.Msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("rdb: %s at offset %d: %s: %v", e.Kind, e.Offset, e.Msg, e.Cause)
	}
	return fmt.Sprintf("rdb: %s at offset %d: %s", e.Kind, e.Offset, e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

func newErr(kind Kind, offset int64, key, msg string, cause error) *DecodeError {
	return &DecodeError{Kind: kind, Key: key, Offset: offset, Msg: msg, Cause: cause}
}

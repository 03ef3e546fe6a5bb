package rdbsnap

// parseIntset decodes an intset-packed raw string into its member
// integers (spec §4.D). Header is a 4-byte little-endian encoding width
// (2, 4, or 8 bytes per entry) and a 4-byte little-endian entry count;
// entries are unsigned little-endian integers of that width, matching
// the reference decoder (which reads them as unsigned regardless of
// width — see DESIGN.md for the glossary/body discrepancy this
// resolves).
func parseIntset(raw []byte) ([]Value, error) {
	br := newByteReaderBytes(raw)

	encoding, err := br.readU32LE()
	if err != nil {
		return nil, err
	}
	count, err := br.readU32LE()
	if err != nil {
		return nil, err
	}

	members := make([]Value, 0, count)
	for i := uint32(0); i < count; i++ {
		var v uint64
		switch encoding {
		case 2:
			u, err := br.readU16LE()
			if err != nil {
				return nil, err
			}
			v = uint64(u)
		case 4:
			u, err := br.readU32LE()
			if err != nil {
				return nil, err
			}
			v = uint64(u)
		case 8:
			u, err := br.readU64LE()
			if err != nil {
				return nil, err
			}
			v = u
		default:
			return nil, newErr(CorruptIntset, br.offset, "", "invalid intset encoding width", nil)
		}
		members = append(members, intValue(int64(v)))
	}

	return members, nil
}

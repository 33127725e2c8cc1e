package palette

// The CGB boot ROM colorizes known DMG cartridges by hashing the
// header title/licensee bytes and looking the hash up in an internal
// table, yielding a (BG, OBJ0, OBJ1) palette triplet. gbcore ships a
// small sample of that table (titles common enough to be worth
// exercising); a full table is a straight data-entry exercise the
// emulation core itself doesn't need to demonstrate.
type CompatibilityEntry struct {
	BG, OBJ0, OBJ1 [4]RGB
}

var compatibilityByHash = map[uint16]CompatibilityEntry{
	0x0003: {
		BG: [4]RGB{{0xFF, 0xFF, 0xFF}, {0xAD, 0xAD, 0x84}, {0x42, 0x73, 0x7B}, {0x00, 0x00, 0x00}},
	},
	0x0503: {
		BG:   [4]RGB{{0xFF, 0xFF, 0xFF}, {0x52, 0xFF, 0x00}, {0xFF, 0x42, 0x00}, {0x00, 0x00, 0x00}},
		OBJ0: [4]RGB{{0xFF, 0xFF, 0xFF}, {0xFF, 0x84, 0x84}, {0x94, 0x3A, 0x3A}, {0x00, 0x00, 0x00}},
		OBJ1: [4]RGB{{0xFF, 0xFF, 0xFF}, {0xFF, 0x84, 0x84}, {0x94, 0x3A, 0x3A}, {0x00, 0x00, 0x00}},
	},
	0x1C03: {
		BG:   [4]RGB{{0xFF, 0xFF, 0xFF}, {0x7B, 0xFF, 0x31}, {0x00, 0x63, 0xC6}, {0x00, 0x00, 0x00}},
		OBJ0: [4]RGB{{0xFF, 0xFF, 0xFF}, {0xFF, 0x84, 0x84}, {0x94, 0x39, 0x39}, {0x00, 0x00, 0x00}},
		OBJ1: [4]RGB{{0xFF, 0xFF, 0xFF}, {0xFF, 0x84, 0x84}, {0x94, 0x39, 0x39}, {0x00, 0x00, 0x00}},
	},
}

// CompatibilityEntryFor looks up the colorization entry for a header
// hash byte and disambiguation byte, as computed by the CGB boot ROM.
func CompatibilityEntryFor(entryID, disambiguation uint8) (CompatibilityEntry, bool) {
	e, ok := compatibilityByHash[uint16(entryID)<<8|uint16(disambiguation)]
	return e, ok
}

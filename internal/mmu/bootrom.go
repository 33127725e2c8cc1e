package mmu

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// BootROM is a user-supplied boot ROM image overlaying 0x0000-0x00FF (DMG)
// or 0x0000-0x00FF + 0x0200-0x08FF (CGB) until the cartridge disables it
// by writing to 0xFF50. gbcore never ships a boot ROM image itself, only
// the overlay mechanics and a table of known checksums for identification.
type BootROM struct {
	raw      []byte
	checksum string
}

// NewBootROM wraps a boot ROM image, validating it is either the 256-byte
// DMG/MGB/SGB size or the 2304-byte CGB size.
func NewBootROM(raw []byte) (*BootROM, error) {
	if len(raw) != 256 && len(raw) != 2304 {
		return nil, fmt.Errorf("mmu: invalid boot ROM length: %d", len(raw))
	}
	sum := md5.Sum(raw)
	return &BootROM{raw: raw, checksum: hex.EncodeToString(sum[:])}, nil
}

func (b *BootROM) Read(addr uint16) uint8 {
	return b.raw[addr]
}

func (b *BootROM) CGB() bool {
	return len(b.raw) == 2304
}

func (b *BootROM) Model() string {
	if model, ok := knownBootROMChecksums[b.checksum]; ok {
		return model
	}
	return "unknown"
}

var knownBootROMChecksums = map[string]string{
	"a8f84a0ac44da5d3f0ee19f9cea80a8c": "Game Boy (DMG-0)",
	"32fbbd84168d3482956eb3c5051637f5": "Game Boy (DMG-01)",
	"71a378e71ff30b2d8a1f02bf5c7896aa": "Game Boy Pocket (MGB)",
	"d574d4f9c12f305074798f54c091a8b4": "Super Game Boy",
	"e0430bca9925fb9882148fd2dc2418c1": "Super Game Boy 2",
	"7c773f3c0b01cb73bca8e83227287b7f": "Game Boy Color (CGB-0)",
	"dbfce9db9deaa2567f6a84fde55f9680": "Game Boy Color (CGB-A/B/C/D/E)",
}

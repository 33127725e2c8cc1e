package cartridge

import "github.com/pixeldrift/gbcore/internal/state"

// mbc2 implements the MBC2 mapper: up to 16 switchable 16KiB ROM banks
// and a built-in 512x4-bit RAM array (the upper nibble of every byte
// always reads back as 1s), addressed with the usual bit 8 of the
// address used to distinguish a RAM-enable write from a bank-select
// write in the same 0x0000-0x3FFF window.
type mbc2 struct {
	rom []byte
	ram []byte // 512 entries, low nibble significant

	ramEnabled bool
	romBank    int
	romBanks   int
}

func newMBC2(rom, ram []byte) *mbc2 {
	if len(ram) == 0 {
		ram = make([]byte, 512)
	}
	return &mbc2{rom: rom, ram: ram, romBank: 1, romBanks: len(rom) / 0x4000}
}

func (m *mbc2) Read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		return m.rom[address]
	case address < 0x8000:
		off := m.romBank*0x4000 + int(address-0x4000)
		if off < len(m.rom) {
			return m.rom[off]
		}
	case address >= 0xA000 && address < 0xC000:
		if !m.ramEnabled {
			return 0xFF
		}
		return m.ram[address&0x1FF] | 0xF0
	}
	return 0xFF
}

func (m *mbc2) Write(address uint16, value uint8) {
	switch {
	case address < 0x4000:
		if address&0x100 != 0 {
			bank := int(value & 0x0F)
			if bank == 0 {
				bank = 1
			}
			if m.romBanks > 0 {
				bank %= m.romBanks
			}
			m.romBank = bank
		} else {
			m.ramEnabled = value&0x0F == 0x0A
		}
	case address >= 0xA000 && address < 0xC000:
		if m.ramEnabled {
			m.ram[address&0x1FF] = value & 0x0F
		}
	}
}

func (m *mbc2) RAM() []byte { return m.ram }

func (m *mbc2) Save(s *state.State) {
	s.WriteData(m.ram)
	s.WriteBool(m.ramEnabled)
	s.Write8(uint8(m.romBank))
}

func (m *mbc2) Load(s *state.State) {
	s.ReadData(m.ram)
	m.ramEnabled = s.ReadBool()
	m.romBank = int(s.Read8())
}

package cartridge

import "github.com/pixeldrift/gbcore/internal/state"

// mbc5 implements the MBC5 mapper: a full 9-bit ROM bank number (up to
// 512 banks), a 4-bit RAM bank number, and an optional rumble motor whose
// control bit is folded into what would otherwise be the RAM bank's top
// bit.
type mbc5 struct {
	rom []byte
	ram []byte

	ramEnabled bool
	romBank    int
	ramBank    int
	rumble     bool
	motorOn    bool

	romBanks int
}

func newMBC5(rom, ram []byte, rumble bool) *mbc5 {
	return &mbc5{rom: rom, ram: ram, romBank: 1, romBanks: len(rom) / 0x4000, rumble: rumble}
}

func (m *mbc5) Read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		if int(address) < len(m.rom) {
			return m.rom[address]
		}
	case address < 0x8000:
		off := m.romBank*0x4000 + int(address-0x4000)
		if off < len(m.rom) {
			return m.rom[off]
		}
	case address >= 0xA000 && address < 0xC000:
		if !m.ramEnabled {
			return 0xFF
		}
		off := m.ramBank*0x2000 + int(address-0xA000)
		if off < len(m.ram) {
			return m.ram[off]
		}
	}
	return 0xFF
}

func (m *mbc5) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case address < 0x3000:
		m.romBank = (m.romBank &^ 0xFF) | int(value)
		m.clampROMBank()
	case address < 0x4000:
		m.romBank = (m.romBank & 0xFF) | int(value&0x01)<<8
		m.clampROMBank()
	case address < 0x6000:
		bank := value & 0x0F
		if m.rumble {
			m.motorOn = bank&0x08 != 0
			bank &= 0x07
		}
		m.ramBank = int(bank)
		if len(m.ram) > 0 {
			m.ramBank %= max(1, len(m.ram)/0x2000)
		} else {
			m.ramBank = 0
		}
	case address >= 0xA000 && address < 0xC000:
		if m.ramEnabled && len(m.ram) > 0 {
			off := m.ramBank*0x2000 + int(address-0xA000)
			if off < len(m.ram) {
				m.ram[off] = value
			}
		}
	}
}

func (m *mbc5) clampROMBank() {
	if m.romBanks > 0 {
		m.romBank %= m.romBanks
	}
}

// RumbleActive reports whether the cartridge's rumble motor is currently
// commanded on, for a host to forward to a controller.
func (m *mbc5) RumbleActive() bool { return m.rumble && m.motorOn }

func (m *mbc5) RAM() []byte { return m.ram }

func (m *mbc5) Save(s *state.State) {
	s.WriteData(m.ram)
	s.WriteBool(m.ramEnabled)
	s.Write16(uint16(m.romBank))
	s.Write8(uint8(m.ramBank))
	s.WriteBool(m.motorOn)
}

func (m *mbc5) Load(s *state.State) {
	s.ReadData(m.ram)
	m.ramEnabled = s.ReadBool()
	m.romBank = int(s.Read16())
	m.ramBank = int(s.Read8())
	m.motorOn = s.ReadBool()
}

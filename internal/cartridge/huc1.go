package cartridge

import "github.com/pixeldrift/gbcore/internal/state"

// huc1 implements the Hudson HuC1 mapper: a 6-bit ROM bank register at
// 0x2000-0x3FFF and a separate 2-bit RAM bank register at 0x4000-0x5FFF
// (unlike MBC1, the RAM bank never extends the ROM bank and there is no
// banking-mode register), plus an IR LED/photo-transistor pair addressed
// through the RAM window when IR mode is selected instead of RAM. No
// physical IR peer is modelled, so reads of the IR port always report
// "no signal".
type huc1 struct {
	rom []byte
	ram []byte

	ramg     bool
	irMode   bool
	romBank  int
	ramBank  uint8
	romBanks int
}

func newHuC1(rom, ram []byte) *huc1 {
	return &huc1{rom: rom, ram: ram, romBank: 1, romBanks: len(rom) / 0x4000}
}

func (m *huc1) Read(address uint16) uint8 {
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
		if m.irMode {
			return 0xC0 // no IR signal received
		}
		if !m.ramg || len(m.ram) == 0 {
			return 0xFF
		}
		off := int(m.ramBank&0x03)*0x2000 + int(address-0xA000)
		if off < len(m.ram) {
			return m.ram[off]
		}
	}
	return 0xFF
}

func (m *huc1) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.irMode = value&0x0F == 0x0E
		m.ramg = value&0x0F == 0x0A
	case address < 0x4000:
		bank := int(value & 0x3F)
		if bank == 0 {
			bank = 1
		}
		if m.romBanks > 0 {
			bank %= m.romBanks
		}
		m.romBank = bank
	case address < 0x6000:
		m.ramBank = value & 0x03
	case address >= 0xA000 && address < 0xC000:
		if m.irMode {
			return // IR LED writes have no observable effect without a peer
		}
		if m.ramg && len(m.ram) > 0 {
			off := int(m.ramBank&0x03)*0x2000 + int(address-0xA000)
			if off < len(m.ram) {
				m.ram[off] = value
			}
		}
	}
}

func (m *huc1) RAM() []byte { return m.ram }

func (m *huc1) Save(s *state.State) {
	s.WriteData(m.ram)
	s.WriteBool(m.ramg)
	s.WriteBool(m.irMode)
	s.Write16(uint16(m.romBank))
	s.Write8(m.ramBank)
}

func (m *huc1) Load(s *state.State) {
	s.ReadData(m.ram)
	m.ramg = s.ReadBool()
	m.irMode = s.ReadBool()
	m.romBank = int(s.Read16())
	m.ramBank = s.Read8()
}

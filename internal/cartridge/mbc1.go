package cartridge

import "github.com/pixeldrift/gbcore/internal/state"

// mbc1Logo is the first 48 bytes of the Nintendo logo bitmap, used only
// to detect the MBC1 multicart ROM layout (see checkMultiCart).
var mbc1Logo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B,
	0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC,
	0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// mbc1 implements the MBC1 mapper: a 5-bit primary ROM bank register
// (bank1), a 2-bit secondary register (bank2) that extends the ROM bank
// or selects the RAM bank depending on mode, and the multicart variant
// that repeats the Nintendo logo across 4 sub-ROMs and uses a narrower
// 4-bit bank1.
type mbc1 struct {
	rom []byte
	ram []byte

	ramg        bool
	bank1       uint8
	bank2       uint8
	mode        bool
	isMultiCart bool

	romBanks int
}

func newMBC1(rom, ram []byte, header Header) *mbc1 {
	m := &mbc1{rom: rom, ram: ram, bank1: 1, romBanks: len(rom) / 0x4000}
	m.checkMultiCart()
	return m
}

func (m *mbc1) checkMultiCart() {
	if len(m.rom) != 1024*1024 {
		return
	}
	matches := 0
	for bank := 0; bank < 4; bank++ {
		base := bank * 0x40000
		match := true
		for i, want := range mbc1Logo {
			if base+0x104+i >= len(m.rom) || m.rom[base+0x104+i] != want {
				match = false
				break
			}
		}
		if match {
			matches++
		}
	}
	m.isMultiCart = matches > 1
}

func (m *mbc1) bankShift() uint8 {
	if m.isMultiCart {
		return 4
	}
	return 5
}

func (m *mbc1) romBank() int {
	bank := int(m.bank1) | int(m.bank2)<<m.bankShift()
	if m.romBanks > 0 {
		bank %= m.romBanks
	}
	return bank
}

func (m *mbc1) zeroBank() int {
	if !m.mode {
		return 0
	}
	bank := int(m.bank2) << m.bankShift()
	if m.romBanks > 0 {
		bank %= m.romBanks
	}
	return bank
}

func (m *mbc1) ramBank() int {
	if !m.mode {
		return 0
	}
	return int(m.bank2 & 0x03)
}

func (m *mbc1) Read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		off := m.zeroBank()*0x4000 + int(address)
		if off < len(m.rom) {
			return m.rom[off]
		}
	case address < 0x8000:
		off := m.romBank()*0x4000 + int(address-0x4000)
		if off < len(m.rom) {
			return m.rom[off]
		}
	case address >= 0xA000 && address < 0xC000:
		if !m.ramg || len(m.ram) == 0 {
			return 0xFF
		}
		off := m.ramBank()*0x2000 + int(address-0xA000)
		if off < len(m.ram) {
			return m.ram[off]
		}
	}
	return 0xFF
}

func (m *mbc1) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ramg = value&0x0F == 0x0A
	case address < 0x4000:
		value &= 0x1F
		if value == 0 {
			value = 1
		}
		if m.isMultiCart {
			value &= 0x0F
		}
		m.bank1 = value
	case address < 0x6000:
		m.bank2 = value & 0x03
	case address < 0x8000:
		m.mode = value&0x01 != 0
	case address >= 0xA000 && address < 0xC000:
		if m.ramg && len(m.ram) > 0 {
			off := m.ramBank()*0x2000 + int(address-0xA000)
			if off < len(m.ram) {
				m.ram[off] = value
			}
		}
	}
}

func (m *mbc1) RAM() []byte { return m.ram }

func (m *mbc1) Save(s *state.State) {
	s.WriteData(m.ram)
	s.WriteBool(m.ramg)
	s.Write8(m.bank1)
	s.Write8(m.bank2)
	s.WriteBool(m.mode)
	s.WriteBool(m.isMultiCart)
}

func (m *mbc1) Load(s *state.State) {
	s.ReadData(m.ram)
	m.ramg = s.ReadBool()
	m.bank1 = s.Read8()
	m.bank2 = s.Read8()
	m.mode = s.ReadBool()
	m.isMultiCart = s.ReadBool()
}

package cartridge

import "github.com/pixeldrift/gbcore/internal/state"

// Mapper decodes CPU accesses to the cartridge ROM window
// (0x0000-0x7FFF) and the external RAM window (0xA000-0xBFFF) according
// to whichever bank-switching scheme the cartridge type implements.
type Mapper interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)

	// RAM returns the mapper's battery-backed SRAM for persistence,
	// or nil if the cartridge has none.
	RAM() []byte

	Save(*state.State)
	Load(*state.State)
}

// New constructs the Mapper appropriate for header.CartridgeType, wired
// to rom (the full cartridge image) and an initial ram snapshot (which
// may be empty, in which case a zeroed array of the declared size is
// allocated).
func New(header Header, rom []byte, ram []byte) Mapper {
	if len(ram) == 0 && header.RAMSize > 0 {
		ram = make([]byte, header.RAMSize)
	}

	switch header.CartridgeType {
	case ROM, ROMRAM, ROMRAMBATT:
		return newRomOnly(rom, ram)
	case MBC1, MBC1RAM, MBC1RAMBATT:
		return newMBC1(rom, ram, header)
	case MBC2, MBC2BATT:
		return newMBC2(rom, ram)
	case MBC3, MBC3RAM, MBC3RAMBATT, MBC3TIMERBATT, MBC3TIMERRAMBATT:
		return newMBC3(rom, ram, header.CartridgeType.HasRTC())
	case MBC5, MBC5RAM, MBC5RAMBATT, MBC5RUMBLE, MBC5RUMBLERAM, MBC5RUMBLERAMBATT:
		rumble := header.CartridgeType == MBC5RUMBLE || header.CartridgeType == MBC5RUMBLERAM || header.CartridgeType == MBC5RUMBLERAMBATT
		return newMBC5(rom, ram, rumble)
	case HUDSONHUC1:
		return newHuC1(rom, ram)
	case HUDSONHUC3:
		return newHuC3(rom, ram)
	default:
		return newRomOnly(rom, ram)
	}
}

// romOnly is the mapper used by cartridges with no bank switching at
// all: ROM is at most 32KiB and RAM (if any) is a single fixed 8KiB bank.
type romOnly struct {
	rom []byte
	ram []byte
}

func newRomOnly(rom, ram []byte) *romOnly {
	return &romOnly{rom: rom, ram: ram}
}

func (m *romOnly) Read(address uint16) uint8 {
	switch {
	case address < 0x8000:
		if int(address) < len(m.rom) {
			return m.rom[address]
		}
		return 0xFF
	case address >= 0xA000 && address < 0xC000:
		idx := address - 0xA000
		if int(idx) < len(m.ram) {
			return m.ram[idx]
		}
		return 0xFF
	}
	return 0xFF
}

func (m *romOnly) Write(address uint16, value uint8) {
	if address >= 0xA000 && address < 0xC000 {
		idx := address - 0xA000
		if int(idx) < len(m.ram) {
			m.ram[idx] = value
		}
	}
}

func (m *romOnly) RAM() []byte { return m.ram }

func (m *romOnly) Save(s *state.State) { s.WriteData(m.ram) }
func (m *romOnly) Load(s *state.State) { s.ReadData(m.ram) }

package cartridge

import (
	"time"

	"github.com/pixeldrift/gbcore/internal/state"
)

// huc3Mode selects what the 0xA000-0xBFFF window addresses, set by
// writing one of its nibble values to 0x0000-0x1FFF.
type huc3Mode uint8

const (
	huc3ModeNone  huc3Mode = 0x00
	huc3ModeRAM   huc3Mode = 0x0A
	huc3ModeCmd   huc3Mode = 0x0B
	huc3ModeIR    huc3Mode = 0x0E
	huc3ModeUnk0C huc3Mode = 0x0C
	huc3ModeUnk0D huc3Mode = 0x0D
)

// huc3 implements the Hudson HuC3 mapper: MBC1-shaped ROM banking, 4
// RAM banks, a command/response register pair for a BCD real-time
// clock, and an IR port that (with no peer modelled) always reports no
// signal, the same simplification used for HuC1.
type huc3 struct {
	rom []byte
	ram []byte

	mode     huc3Mode
	romBank  int
	ramBank  uint8
	romBanks int

	cmdValue  uint8
	cmdResult uint8

	rtc      [6]uint8 // minutes, hours, day-low, day-high, BCD-packed
	cycleAcc int
	lastUnix int64
}

func newHuC3(rom, ram []byte) *huc3 {
	return &huc3{rom: rom, ram: ram, romBank: 1, romBanks: len(rom) / 0x4000, lastUnix: time.Now().Unix()}
}

func (m *huc3) Tick(tCycles int) {
	m.cycleAcc += tCycles
	for m.cycleAcc >= cyclesPerSecond*60 {
		m.cycleAcc -= cyclesPerSecond * 60
		m.advanceMinute()
	}
}

func (m *huc3) advanceMinute() {
	m.rtc[0] = bcdIncrement(m.rtc[0], 60)
	if m.rtc[0] != 0 {
		return
	}
	m.rtc[1] = bcdIncrement(m.rtc[1], 24)
}

func bcdIncrement(v uint8, wrap uint8) uint8 {
	dec := bcdToBin(v) + 1
	if dec >= wrap {
		dec = 0
	}
	return binToBCD(dec)
}

func bcdToBin(v uint8) uint8 { return (v>>4)*10 + v&0x0F }
func binToBCD(v uint8) uint8 { return (v/10)<<4 | v%10 }

func (m *huc3) resync() {
	now := time.Now().Unix()
	elapsed := now - m.lastUnix
	m.lastUnix = now
	for i := int64(0); i < elapsed/60; i++ {
		m.advanceMinute()
	}
}

func (m *huc3) Read(address uint16) uint8 {
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
		switch m.mode {
		case huc3ModeRAM:
			off := int(m.ramBank)*0x2000 + int(address-0xA000)
			if off < len(m.ram) {
				return m.ram[off]
			}
		case huc3ModeCmd:
			return m.cmdResult
		case huc3ModeIR:
			return 0xC0 // no IR signal received
		}
	}
	return 0xFF
}

func (m *huc3) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.mode = huc3Mode(value & 0x0F)
	case address < 0x4000:
		bank := int(value & 0x7F)
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
		switch m.mode {
		case huc3ModeRAM:
			off := int(m.ramBank)*0x2000 + int(address-0xA000)
			if off < len(m.ram) {
				m.ram[off] = value
			}
		case huc3ModeCmd:
			m.runCommand(value)
		}
	}
}

// runCommand is a deliberate simplification of the real HuC3 command
// protocol: the top nibble of the byte written selects an operation
// (read a clock register, write one, or latch), the bottom nibble
// carries the register index or write payload.
func (m *huc3) runCommand(v uint8) {
	op, arg := v>>4, v&0x0F
	switch op {
	case 0x1: // read register `arg`
		if int(arg) < len(m.rtc) {
			m.cmdResult = m.rtc[arg]
		}
	case 0x3: // write low nibble of register `arg` with cmdValue
		if int(arg) < len(m.rtc) {
			m.rtc[arg] = m.cmdValue
		}
	case 0x4:
		m.cmdValue = arg
	}
}

func (m *huc3) RAM() []byte { return m.ram }

func (m *huc3) Save(s *state.State) {
	s.WriteData(m.ram)
	s.Write8(uint8(m.mode))
	s.Write16(uint16(m.romBank))
	s.Write8(m.ramBank)
	s.Write8(m.cmdValue)
	s.Write8(m.cmdResult)
	for _, r := range m.rtc {
		s.Write8(r)
	}
	s.Write32(uint32(m.cycleAcc))
	s.Write32(uint32(m.lastUnix))
}

func (m *huc3) Load(s *state.State) {
	s.ReadData(m.ram)
	m.mode = huc3Mode(s.Read8())
	m.romBank = int(s.Read16())
	m.ramBank = s.Read8()
	m.cmdValue = s.Read8()
	m.cmdResult = s.Read8()
	for i := range m.rtc {
		m.rtc[i] = s.Read8()
	}
	m.cycleAcc = int(s.Read32())
	m.lastUnix = int64(s.Read32())
	m.resync()
}

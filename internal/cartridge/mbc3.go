package cartridge

import (
	"time"

	"github.com/pixeldrift/gbcore/internal/state"
)

// mbc3 implements the MBC3 mapper: up to 128 switchable 16KiB ROM banks,
// up to 4 switchable 8KiB RAM banks, and (on TIMER variants) a real-time
// clock exposed as five registers (S, M, H, DL, DH) selected by writing
// 0x08-0x0C to the RAM-bank register.
//
// The live registers advance every tick via a sub-second T-cycle
// accumulator; on Load, elapsed wall-clock time since the state was saved
// is fast-forwarded into the registers in one jump, so a save loaded days
// later reflects a clock that kept running while the emulator was closed.
type mbc3 struct {
	rom []byte
	ram []byte

	ramEnabled bool
	romBank    int
	ramBank    uint8 // 0x00-0x03 selects RAM, 0x08-0x0C selects an RTC register
	romBanks   int

	hasRTC bool
	rtc    rtcRegisters
	latch  rtcRegisters
	latched bool
	// latchWrite tracks the 0x00-then-0x01 write sequence that commits
	// the live registers into the latched snapshot.
	latchWrite uint8

	cycleAccum int
	lastUnix   int64
}

// rtcRegisters holds the five real-time-clock counters. DH's bit 0 is the
// day counter's 9th bit, bit 6 halts the clock, bit 7 is the day-counter
// carry (overflow past day 511), matching the real MBC3 layout.
type rtcRegisters struct {
	seconds, minutes, hours uint8
	dayLow                  uint8
	dayHigh                 uint8
}

const (
	rtcDayHighBit  = 0x01
	rtcHaltBit     = 0x40
	rtcCarryBit    = 0x80
	cyclesPerSecond = 4194304
)

func newMBC3(rom, ram []byte, hasRTC bool) *mbc3 {
	return &mbc3{
		rom:      rom,
		ram:      ram,
		romBank:  1,
		romBanks: len(rom) / 0x4000,
		hasRTC:   hasRTC,
		lastUnix: time.Now().Unix(),
	}
}

// Tick advances the live RTC by tCycles T-cycles, used even while the
// clock is unlatched so a read through the latch always reflects time at
// the moment of the last latch-write.
func (m *mbc3) Tick(tCycles int) {
	if !m.hasRTC || m.rtc.dayHigh&rtcHaltBit != 0 {
		return
	}
	m.cycleAccum += tCycles
	for m.cycleAccum >= cyclesPerSecond {
		m.cycleAccum -= cyclesPerSecond
		m.advanceSecond()
	}
}

func (m *mbc3) advanceSecond() {
	m.rtc.seconds++
	if m.rtc.seconds < 60 {
		return
	}
	m.rtc.seconds = 0
	m.rtc.minutes++
	if m.rtc.minutes < 60 {
		return
	}
	m.rtc.minutes = 0
	m.rtc.hours++
	if m.rtc.hours < 24 {
		return
	}
	m.rtc.hours = 0
	day := uint16(m.rtc.dayLow) | uint16(m.rtc.dayHigh&rtcDayHighBit)<<8
	day++
	if day > 511 {
		day = 0
		m.rtc.dayHigh |= rtcCarryBit
	}
	m.rtc.dayLow = uint8(day)
	m.rtc.dayHigh = m.rtc.dayHigh&^rtcDayHighBit | uint8(day>>8)&rtcDayHighBit
}

// resync fast-forwards the live clock by the wall-clock time elapsed
// since it was last observed, used right after Load.
func (m *mbc3) resync() {
	if !m.hasRTC {
		return
	}
	now := time.Now().Unix()
	elapsed := now - m.lastUnix
	m.lastUnix = now
	if elapsed <= 0 || m.rtc.dayHigh&rtcHaltBit != 0 {
		return
	}
	for i := int64(0); i < elapsed; i++ {
		m.advanceSecond()
	}
}

func (m *mbc3) Read(address uint16) uint8 {
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
		if m.ramBank <= 0x03 {
			off := int(m.ramBank)*0x2000 + int(address-0xA000)
			if off < len(m.ram) {
				return m.ram[off]
			}
			return 0xFF
		}
		if !m.hasRTC {
			return 0xFF
		}
		regs := m.rtc
		if m.latched {
			regs = m.latch
		}
		switch m.ramBank {
		case 0x08:
			return regs.seconds
		case 0x09:
			return regs.minutes
		case 0x0A:
			return regs.hours
		case 0x0B:
			return regs.dayLow
		case 0x0C:
			return regs.dayHigh
		}
	}
	return 0xFF
}

func (m *mbc3) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
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
		m.ramBank = value
	case address < 0x8000:
		if value == 0x00 {
			m.latchWrite = 1
		} else if value == 0x01 && m.latchWrite == 1 {
			m.latch = m.rtc
			m.latched = true
			m.latchWrite = 0
		} else {
			m.latchWrite = 0
		}
	case address >= 0xA000 && address < 0xC000:
		if !m.ramEnabled {
			return
		}
		if m.ramBank <= 0x03 {
			off := int(m.ramBank)*0x2000 + int(address-0xA000)
			if off < len(m.ram) {
				m.ram[off] = value
			}
			return
		}
		if !m.hasRTC {
			return
		}
		switch m.ramBank {
		case 0x08:
			m.rtc.seconds = value % 60
		case 0x09:
			m.rtc.minutes = value % 60
		case 0x0A:
			m.rtc.hours = value % 24
		case 0x0B:
			m.rtc.dayLow = value
		case 0x0C:
			m.rtc.dayHigh = value & (rtcDayHighBit | rtcHaltBit | rtcCarryBit)
		}
	}
}

func (m *mbc3) RAM() []byte { return m.ram }

func (m *mbc3) Save(s *state.State) {
	s.WriteData(m.ram)
	s.WriteBool(m.ramEnabled)
	s.Write8(uint8(m.romBank))
	s.Write8(m.ramBank)
	s.WriteBool(m.hasRTC)
	writeRTC(s, m.rtc)
	writeRTC(s, m.latch)
	s.WriteBool(m.latched)
	s.Write8(m.latchWrite)
	s.Write32(uint32(m.cycleAccum))
	s.Write32(uint32(time.Now().Unix()))
}

func (m *mbc3) Load(s *state.State) {
	s.ReadData(m.ram)
	m.ramEnabled = s.ReadBool()
	m.romBank = int(s.Read8())
	m.ramBank = s.Read8()
	m.hasRTC = s.ReadBool()
	m.rtc = readRTC(s)
	m.latch = readRTC(s)
	m.latched = s.ReadBool()
	m.latchWrite = s.Read8()
	m.cycleAccum = int(s.Read32())
	m.lastUnix = int64(s.Read32())
	m.resync()
}

func writeRTC(s *state.State, r rtcRegisters) {
	s.Write8(r.seconds)
	s.Write8(r.minutes)
	s.Write8(r.hours)
	s.Write8(r.dayLow)
	s.Write8(r.dayHigh)
}

func readRTC(s *state.State) rtcRegisters {
	return rtcRegisters{
		seconds: s.Read8(),
		minutes: s.Read8(),
		hours:   s.Read8(),
		dayLow:  s.Read8(),
		dayHigh: s.Read8(),
	}
}

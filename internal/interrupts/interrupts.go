// Package interrupts implements the IE/IF/IME interrupt service: pending
// interrupt bookkeeping, the one-instruction EI delay, and the
// priority-ordered vector lookup the CPU consults when IME is set and at
// least one enabled interrupt is pending.
package interrupts

import "github.com/pixeldrift/gbcore/internal/state"

// Vector is the entry address an interrupt dispatches to.
type Vector = uint16

const (
	VBlank Vector = 0x0040
	LCD    Vector = 0x0048
	Timer  Vector = 0x0050
	Serial Vector = 0x0058
	Joypad Vector = 0x0060
)

// Flag identifies a bit position in IE/IF.
type Flag = uint8

const (
	VBlankFlag Flag = 0
	LCDFlag    Flag = 1
	TimerFlag  Flag = 2
	SerialFlag Flag = 3
	JoypadFlag Flag = 4
)

const (
	FlagRegister   uint16 = 0xFF0F
	EnableRegister uint16 = 0xFFFF
)

// vectorByFlag is indexed by priority: VBlank is checked first, Joypad
// last, matching real hardware's fixed dispatch order.
var vectorByFlag = [5]Vector{VBlank, LCD, Timer, Serial, Joypad}

// Service owns IE, IF and IME, and resolves which interrupt (if any)
// should be serviced next.
type Service struct {
	Flag   uint8
	Enable uint8

	IME bool
	// pendingEnable delays the effect of EI by exactly one instruction,
	// set through RequestEnable while the CPU decodes EI and cleared here
	// once applied.
	pendingEnable bool
}

func NewService() *Service {
	return &Service{}
}

// Request sets the IF bit for flag, unconditionally of IE or IME: a
// disabled interrupt still latches its flag and can wake the CPU from
// HALT.
func (s *Service) Request(flag Flag) {
	s.Flag |= 1 << flag
}

func (s *Service) Clear(flag Flag) {
	s.Flag &^= 1 << flag
}

// RequestEnable schedules IME to become true after the next Step,
// implementing EI's one-instruction-delayed effect.
func (s *Service) RequestEnable() {
	s.pendingEnable = true
}

// Step applies a pending EI from the previous instruction. Called once
// per instruction boundary, after the instruction that issued EI has
// fully retired.
func (s *Service) Step() {
	if s.pendingEnable {
		s.IME = true
		s.pendingEnable = false
	}
}

// Pending reports whether any enabled interrupt has its flag set,
// independent of IME — this is what wakes the CPU from HALT.
func (s *Service) Pending() bool {
	return s.Flag&s.Enable&0x1F != 0
}

// Vector returns the highest-priority pending+enabled interrupt's entry
// address and flag, and whether one was found. The caller (CPU) is
// responsible for clearing IME and the flag as part of dispatch.
func (s *Service) Vector() (Vector, Flag, bool) {
	active := s.Flag & s.Enable & 0x1F
	if active == 0 {
		return 0, 0, false
	}
	for flag := Flag(0); flag < 5; flag++ {
		if active&(1<<flag) != 0 {
			return vectorByFlag[flag], flag, true
		}
	}
	return 0, 0, false
}

// Read implements the MMU-facing register read for IF/IE. IF's upper
// three bits always read back as 1, matching real hardware.
func (s *Service) Read(address uint16) uint8 {
	switch address {
	case FlagRegister:
		return s.Flag&0x1F | 0xE0
	case EnableRegister:
		return s.Enable
	}
	return 0xFF
}

func (s *Service) Write(address uint16, value uint8) {
	switch address {
	case FlagRegister:
		s.Flag = value & 0x1F
	case EnableRegister:
		s.Enable = value
	}
}

func (s *Service) Save(st *state.State) {
	st.Write8(s.Flag)
	st.Write8(s.Enable)
	st.WriteBool(s.IME)
	st.WriteBool(s.pendingEnable)
}

func (s *Service) Load(st *state.State) {
	s.Flag = st.Read8()
	s.Enable = st.Read8()
	s.IME = st.ReadBool()
	s.pendingEnable = st.ReadBool()
}

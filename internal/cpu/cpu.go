// Package cpu implements the LR35902: the Sharp-custom Z80-derivative
// instruction set, its interrupt dispatch, and the per-M-cycle stepping
// that drives every other ticked component (timer, serial, PPU, APU and
// the MMU's OAM/HDMA engines) in lockstep with instruction execution.
package cpu

import (
	"github.com/pixeldrift/gbcore/internal/apu"
	"github.com/pixeldrift/gbcore/internal/interrupts"
	"github.com/pixeldrift/gbcore/internal/mmu"
	"github.com/pixeldrift/gbcore/internal/ppu"
	"github.com/pixeldrift/gbcore/internal/serial"
	"github.com/pixeldrift/gbcore/internal/state"
	"github.com/pixeldrift/gbcore/internal/timer"
	"github.com/pixeldrift/gbcore/internal/types"
)

// ClockSpeed is the base (single-speed) T-cycle frequency of the CPU.
const ClockSpeed = 4194304

type mode = uint8

const (
	ModeNormal mode = iota
	ModeHalt
	ModeStop
)

// speedSwitchHaltCycles is the forced-halt duration following a CGB
// double-speed switch (STOP with KEY1 armed), in T-cycles.
const speedSwitchHaltCycles = 0x20000

// CPU executes LR35902 machine code and owns the M-cycle clock that
// drives the rest of the machine.
type CPU struct {
	PC uint16
	SP uint16
	Registers

	model types.Model

	mmu *mmu.MMU
	irq *interrupts.Service

	timer  *timer.Controller
	ppuDev *ppu.PPU
	apuDev *apu.APU
	serial *serial.Controller

	Debug           bool
	DebugBreakpoint bool

	regPtrs [8]*Register

	currentTick uint8
	mode        mode
	stopCycles  int
}

// New wires a CPU to the shared MMU and component set. model determines
// CGB-only opcode behavior (the STOP speed-switch handshake and the MGB
// OAM-HALT quirk).
func New(model types.Model, m *mmu.MMU, irq *interrupts.Service, t *timer.Controller, p *ppu.PPU, a *apu.APU, s *serial.Controller) *CPU {
	c := &CPU{
		model:  model,
		mmu:    m,
		irq:    irq,
		timer:  t,
		ppuDev: p,
		apuDev: a,
		serial: s,
	}
	c.bindPairs()
	c.regPtrs = [8]*Register{&c.B, &c.C, &c.D, &c.E, &c.H, &c.L, &c.memOperand, &c.A}
	return c
}

// Step executes a single instruction (or one HALT/STOP tick, or one
// EI-delay/interrupt-dispatch boundary) and returns the number of
// T-cycles consumed, for the caller to accumulate against a per-frame
// budget.
func (c *CPU) Step() uint8 {
	c.currentTick = 0

	if c.mmu.HDMAActive() {
		c.tickCycle()
		return c.currentTick
	}

	switch c.mode {
	case ModeNormal:
		c.irq.Step()
		c.runInstruction(c.readInstruction())
	case ModeHalt:
		c.tickCycle()
		if c.irq.Pending() {
			c.mode = ModeNormal
		}
	case ModeStop:
		c.tickCycle()
		c.stopCycles -= 4
		if c.stopCycles <= 0 {
			c.mode = ModeNormal
		}
	}

	if c.irq.IME && c.irq.Pending() {
		c.executeInterrupt()
	}

	return c.currentTick
}

func (c *CPU) runInstruction(opcode uint8) {
	c.decode(opcode)
	if c.Debug && opcode == 0x40 { // LD B, B
		c.DebugBreakpoint = true
	}
}

func (c *CPU) executeInterrupt() {
	vector, flag, ok := c.irq.Vector()
	if !ok {
		return
	}

	// two internal delay M-cycles, the two-byte push, then one M-cycle to
	// load PC with the vector, matching the 5 M-cycle dispatch real
	// hardware takes.
	c.tickCycle()
	c.tickCycle()

	c.SP--
	c.clockedWrite(c.SP, uint8(c.PC>>8))
	c.SP--
	c.clockedWrite(c.SP, uint8(c.PC&0xFF))
	c.tickCycle()

	c.irq.Clear(flag)
	c.irq.IME = false
	c.PC = vector
	c.mode = ModeNormal
}

// readInstruction fetches the opcode at PC, consuming one M-cycle.
func (c *CPU) readInstruction() uint8 {
	c.tickCycle()
	v := c.mmu.Read(c.PC)
	c.PC++
	return v
}

// readOperand fetches the next instruction byte; identical to
// readInstruction but named for what it reads.
func (c *CPU) readOperand() uint8 {
	c.tickCycle()
	v := c.mmu.Read(c.PC)
	c.PC++
	return v
}

func (c *CPU) skipOperand() {
	c.tickCycle()
	c.PC++
}

// clockedRead reads addr, consuming one M-cycle.
func (c *CPU) clockedRead(addr uint16) uint8 {
	c.tickCycle()
	return c.mmu.Read(addr)
}

// clockedWrite writes value to addr, consuming one M-cycle.
func (c *CPU) clockedWrite(addr uint16, value uint8) {
	c.tickCycle()
	c.mmu.Write(addr, value)
}

// tickCycle advances every other component by one M-cycle (4 T-cycles)
// and charges the CPU's own clock for it. OAM-DMA/HDMA and the timer/
// serial shift register run at CPU rate in double speed, so they always
// see 4 T-cycles' worth of progress per M-cycle; the PPU and APU are
// never doubled, so in double-speed mode an M-cycle is only half a
// T-cycle-unit of real video/audio time to them.
func (c *CPU) tickCycle() {
	c.mmu.Tick()
	c.timer.Tick(4)
	c.serial.SetDoubleSpeed(c.mmu.DoubleSpeed())
	c.serial.Tick(4)
	if c.mmu.DoubleSpeed() {
		c.ppuDev.Tick(2)
		c.apuDev.Tick(2)
	} else {
		c.ppuDev.Tick(4)
		c.apuDev.Tick(4)
	}
	c.currentTick += 4
}

func (c *CPU) Save(s *state.State) {
	s.Write8(c.A)
	s.Write8(c.F)
	s.Write8(c.B)
	s.Write8(c.C)
	s.Write8(c.D)
	s.Write8(c.E)
	s.Write8(c.H)
	s.Write8(c.L)
	s.Write16(c.SP)
	s.Write16(c.PC)
	s.Write8(c.mode)
	s.Write32(uint32(c.stopCycles))
}

func (c *CPU) Load(s *state.State) {
	c.A = s.Read8()
	c.F = s.Read8()
	c.B = s.Read8()
	c.C = s.Read8()
	c.D = s.Read8()
	c.E = s.Read8()
	c.H = s.Read8()
	c.L = s.Read8()
	c.SP = s.Read16()
	c.PC = s.Read16()
	c.mode = s.Read8()
	c.stopCycles = int(s.Read32())
}

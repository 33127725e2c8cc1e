package cpu

import (
	"testing"

	"github.com/pixeldrift/gbcore/internal/apu"
	"github.com/pixeldrift/gbcore/internal/cartridge"
	"github.com/pixeldrift/gbcore/internal/interrupts"
	"github.com/pixeldrift/gbcore/internal/mmu"
	"github.com/pixeldrift/gbcore/internal/ppu"
	"github.com/pixeldrift/gbcore/internal/serial"
	"github.com/pixeldrift/gbcore/internal/timer"
	"github.com/pixeldrift/gbcore/internal/types"
	"github.com/stretchr/testify/require"
)

// newTestCPU builds a fully wired machine around a blank ROM-only
// cartridge, suitable for feeding hand-written opcode sequences directly
// into work RAM and executing them.
func newTestCPU(t *testing.T) *CPU {
	t.Helper()

	rom := make([]byte, 0x8000)
	cart, err := cartridge.Load(rom, nil)
	require.NoError(t, err)

	regs := &types.HardwareRegisters{}
	irq := interrupts.NewService()
	m := mmu.New(cart, irq, regs, false)
	tm := timer.NewController(irq, regs)
	sr := serial.NewController(irq, regs)
	p := ppu.New(irq, regs, false)
	a := apu.New(regs, types.DMGABC)
	m.AttachVideo(p)

	return New(types.DMGABC, m, irq, tm, p, a, sr)
}

// load writes program bytes starting at 0xC000 (work RAM) and points PC
// at it.
func (c *CPU) load(program ...uint8) {
	for i, b := range program {
		c.mmu.Write(0xC000+uint16(i), b)
	}
	c.PC = 0xC000
}

func TestNOP(t *testing.T) {
	c := newTestCPU(t)
	c.load(0x00)
	ticks := c.Step()
	require.EqualValues(t, 4, ticks)
	require.Equal(t, uint16(0xC001), c.PC)
}

func TestLoadImmediate8(t *testing.T) {
	c := newTestCPU(t)
	c.load(0x06, 0x42) // LD B, 0x42
	c.Step()
	require.EqualValues(t, 0x42, c.B)
}

func TestLoadRegisterPair16(t *testing.T) {
	c := newTestCPU(t)
	c.load(0x21, 0x34, 0x12) // LD HL, 0x1234
	c.Step()
	require.Equal(t, uint16(0x1234), c.HL.Uint16())
}

func TestIncDecRegister(t *testing.T) {
	c := newTestCPU(t)
	c.load(0x3C, 0x3D) // INC A; DEC A
	c.A = 0xFF
	c.Step()
	require.EqualValues(t, 0x00, c.A)
	require.True(t, c.isFlagSet(flagZero))
	require.True(t, c.isFlagSet(flagHalfCarry))

	c.Step()
	require.EqualValues(t, 0xFF, c.A)
	require.True(t, c.isFlagSet(flagSubtract))
}

func TestAddWithCarry(t *testing.T) {
	c := newTestCPU(t)
	c.load(0x87) // ADD A, A
	c.A = 0x80
	c.Step()
	require.EqualValues(t, 0x00, c.A)
	require.True(t, c.isFlagSet(flagZero))
	require.True(t, c.isFlagSet(flagCarry))
	require.False(t, c.isFlagSet(flagHalfCarry))
}

func TestXorAClearsAccumulator(t *testing.T) {
	c := newTestCPU(t)
	c.load(0xAF) // XOR A
	c.A = 0x99
	c.Step()
	require.EqualValues(t, 0, c.A)
	require.True(t, c.isFlagSet(flagZero))
}

func TestJumpRelative(t *testing.T) {
	c := newTestCPU(t)
	c.load(0x18, 0x02, 0x00, 0x00, 0x3C) // JR +2 ; NOP; NOP; INC A
	c.Step()
	require.Equal(t, uint16(0xC004), c.PC)
	c.Step()
	require.EqualValues(t, 1, c.A)
}

func TestCallAndReturn(t *testing.T) {
	c := newTestCPU(t)
	c.SP = 0xDFFE
	c.load(0xCD, 0x05, 0xC0, 0x00, 0x00, 0xC9) // CALL 0xC005; RET
	c.Step()                                   // CALL
	require.Equal(t, uint16(0xC005), c.PC)
	c.Step() // RET
	require.Equal(t, uint16(0xC003), c.PC)
}

func TestHaltWakesOnPendingInterrupt(t *testing.T) {
	c := newTestCPU(t)
	c.load(0x76) // HALT
	c.irq.IME = false
	c.Step()
	require.Equal(t, ModeHalt, c.mode)

	c.irq.Enable = 1 << interrupts.VBlankFlag
	c.irq.Request(interrupts.VBlankFlag)
	c.Step()
	require.Equal(t, ModeNormal, c.mode)
}

func TestInterruptDispatch(t *testing.T) {
	c := newTestCPU(t)
	c.SP = 0xDFFE
	c.load(0x00) // NOP, interrupt should preempt the next fetch
	c.irq.IME = true
	c.irq.Enable = 1 << interrupts.VBlankFlag
	c.irq.Request(interrupts.VBlankFlag)

	c.Step()

	require.Equal(t, interrupts.VBlank, c.PC)
	require.False(t, c.irq.IME)
	require.Equal(t, uint16(0xDFFC), c.SP)
}

func TestEIDelaysByOneInstruction(t *testing.T) {
	c := newTestCPU(t)
	c.load(0xFB, 0x00, 0x00) // EI; NOP; NOP
	c.irq.Enable = 1 << interrupts.VBlankFlag
	c.irq.Request(interrupts.VBlankFlag)

	c.Step() // EI: IME scheduled, not yet active
	require.False(t, c.irq.IME)
	require.Equal(t, uint16(0xC001), c.PC)

	c.Step() // NOP: IME becomes active before this fetch, interrupt fires after
	require.Equal(t, interrupts.VBlank, c.PC)
}

// Package serial emulates the SB/SC serial port: an 8-bit shift register
// clocked either internally (deriving its rate from the system clock) or
// externally, with no physical link cable modelled beyond an optional
// in-process Device the host can attach for link-cable tests.
package serial

import (
	"github.com/pixeldrift/gbcore/internal/interrupts"
	"github.com/pixeldrift/gbcore/internal/state"
	"github.com/pixeldrift/gbcore/internal/types"
)

// Device is an external endpoint a Controller can be linked to. Receive
// delivers the bit shifted out by the other side; Send returns the bit
// this side is currently presenting on its output line.
type Device interface {
	Receive(bit bool)
	Send() bool
}

// Controller is the SB/SC serial port.
type Controller struct {
	data    uint8
	control uint8

	clock    uint16
	lastEdge bool
	shifted  uint8

	doubleSpeed bool
	peer        Device

	irq *interrupts.Service
}

// NewController creates a serial controller with no peer attached, wired
// into regs.
func NewController(irq *interrupts.Service, regs *types.HardwareRegisters) *Controller {
	c := &Controller{irq: irq, control: 0x7E}
	regs.RegisterHardware(types.SB,
		func(v uint8) { c.data = v },
		func() uint8 { return c.data },
	)
	regs.RegisterHardware(types.SC,
		func(v uint8) { c.control = v | 0x7E },
		func() uint8 { return c.control },
	)
	return c
}

// Attach connects an external device to the port's output/input lines.
func (c *Controller) Attach(d Device) {
	c.peer = d
}

// SetDoubleSpeed toggles the CGB fast serial clock (bit 1 of SC),
// updated whenever the CPU's speed-switch latches.
func (c *Controller) SetDoubleSpeed(v bool) {
	c.doubleSpeed = v
}

func (c *Controller) transferActive() bool {
	return c.control&types.Bit7 != 0
}

func (c *Controller) internalClock() bool {
	return c.control&types.Bit0 != 0
}

func (c *Controller) fastClock() bool {
	return c.doubleSpeed && c.control&types.Bit1 != 0
}

func (c *Controller) edgeMask() uint16 {
	if c.fastClock() {
		return 1 << 3
	}
	return 1 << 8
}

// Tick advances the serial clock by tCycles T-cycles, shifting one bit
// per falling edge of the selected clock source while a transfer is in
// progress.
func (c *Controller) Tick(tCycles int) {
	for i := 0; i < tCycles; i++ {
		c.clock++
		if !c.transferActive() || !c.internalClock() {
			c.lastEdge = false
			continue
		}
		edge := c.clock&c.edgeMask() != 0
		if c.lastEdge && !edge {
			c.shiftBit()
		}
		c.lastEdge = edge
	}
}

func (c *Controller) shiftBit() {
	outBit := c.data&types.Bit7 != 0
	inBit := true // disconnected link cable reads as a held-high line
	if c.peer != nil {
		c.peer.Receive(outBit)
		inBit = c.peer.Send()
	}

	c.data = c.data<<1 | boolToBit(inBit)
	c.shifted++

	if c.shifted == 8 {
		c.shifted = 0
		c.control &^= types.Bit7
		c.irq.Request(interrupts.SerialFlag)
	}
}

func boolToBit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func (c *Controller) Save(st *state.State) {
	st.Write8(c.data)
	st.Write8(c.control)
	st.Write16(c.clock)
	st.WriteBool(c.lastEdge)
	st.Write8(c.shifted)
	st.WriteBool(c.doubleSpeed)
}

func (c *Controller) Load(st *state.State) {
	c.data = st.Read8()
	c.control = st.Read8()
	c.clock = st.Read16()
	c.lastEdge = st.ReadBool()
	c.shifted = st.Read8()
	c.doubleSpeed = st.ReadBool()
}

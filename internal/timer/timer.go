// Package timer implements the DIV/TIMA/TMA/TAC timer circuit: a 16-bit
// free-running divider, and a programmable falling-edge counter that
// requests an interrupt on overflow after a fixed reload delay.
package timer

import (
	"github.com/pixeldrift/gbcore/internal/interrupts"
	"github.com/pixeldrift/gbcore/internal/state"
	"github.com/pixeldrift/gbcore/internal/types"
)

// selectBit maps TAC's low two bits to the DIV bit whose falling edge
// increments TIMA: 4096 Hz, 262144 Hz, 65536 Hz, 16384 Hz respectively.
var selectBit = [4]uint8{9, 3, 5, 7}

// Controller is the timer circuit. It is stepped one T-cycle at a time so
// that the falling-edge detector and the 4-cycle overflow-to-reload delay
// observe every DIV transition, not just M-cycle boundaries.
type Controller struct {
	div uint16

	tima uint8
	tma  uint8
	tac  uint8

	enabled  bool
	selected uint8
	lastEdge bool

	reloading     bool
	reloadTicks   uint8
	reloadCancel  bool

	irq *interrupts.Service
}

// NewController creates a timer and wires DIV/TIMA/TMA/TAC into regs.
func NewController(irq *interrupts.Service, regs *types.HardwareRegisters) *Controller {
	c := &Controller{irq: irq, div: 0xABCC}

	regs.RegisterHardware(types.DIV,
		func(v uint8) { c.writeDIV() },
		func() uint8 { return uint8(c.div >> 8) },
	)
	regs.RegisterHardware(types.TIMA,
		func(v uint8) { c.writeTIMA(v) },
		func() uint8 { return c.tima },
	)
	regs.RegisterHardware(types.TMA,
		func(v uint8) { c.writeTMA(v) },
		func() uint8 { return c.tma },
	)
	regs.RegisterHardware(types.TAC,
		func(v uint8) { c.writeTAC(v) },
		func() uint8 { return c.tac | 0xF8 },
	)

	return c
}

func (c *Controller) edge() bool {
	return c.enabled && types.TestBit(uint8(c.div>>c.selected), 0)
}

// Tick advances the timer by tCycles T-cycles. The CPU passes 4 per
// M-cycle at either speed, so in CGB double-speed mode the timer runs
// twice as fast in real time.
func (c *Controller) Tick(tCycles int) {
	for i := 0; i < tCycles; i++ {
		c.tickOne()
	}
}

func (c *Controller) tickOne() {
	if c.reloading {
		c.reloadTicks--
		if c.reloadTicks == 0 {
			c.reloading = false
			if !c.reloadCancel {
				c.tima = c.tma
				c.irq.Request(interrupts.TimerFlag)
			}
			c.reloadCancel = false
		}
	}

	c.div++
	edge := c.edge()
	if c.lastEdge && !edge {
		c.incrementTIMA()
	}
	c.lastEdge = edge
}

func (c *Controller) incrementTIMA() {
	c.tima++
	if c.tima == 0 {
		c.reloading = true
		c.reloadTicks = 4
		c.reloadCancel = false
	}
}

// writeDIV resets the divider to zero. If the previously-selected bit was
// high, the reset itself is a falling edge and glitches TIMA forward,
// matching the real hardware's documented DIV-reset quirk.
func (c *Controller) writeDIV() {
	wasEdge := c.edge()
	c.div = 0
	if wasEdge {
		c.incrementTIMA()
	}
	c.lastEdge = c.edge()
}

func (c *Controller) writeTIMA(v uint8) {
	if c.reloading {
		// a write during the reload window is discarded; the pending
		// reload still completes and still requests the interrupt.
		return
	}
	c.tima = v
}

func (c *Controller) writeTMA(v uint8) {
	c.tma = v
	if c.reloading {
		c.tima = v
	}
}

func (c *Controller) writeTAC(v uint8) {
	wasEdge := c.edge()

	c.tac = v & 0x07
	c.enabled = v&types.Bit2 != 0
	c.selected = selectBit[v&0x03]

	if wasEdge && !c.edge() {
		c.incrementTIMA()
	}
	c.lastEdge = c.edge()
}

func (c *Controller) Save(st *state.State) {
	st.Write16(c.div)
	st.Write8(c.tima)
	st.Write8(c.tma)
	st.Write8(c.tac)
	st.WriteBool(c.enabled)
	st.Write8(c.selected)
	st.WriteBool(c.lastEdge)
	st.WriteBool(c.reloading)
	st.Write8(c.reloadTicks)
	st.WriteBool(c.reloadCancel)
}

func (c *Controller) Load(st *state.State) {
	c.div = st.Read16()
	c.tima = st.Read8()
	c.tma = st.Read8()
	c.tac = st.Read8()
	c.enabled = st.ReadBool()
	c.selected = st.Read8()
	c.lastEdge = st.ReadBool()
	c.reloading = st.ReadBool()
	c.reloadTicks = st.Read8()
	c.reloadCancel = st.ReadBool()
}

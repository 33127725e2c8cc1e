// Package joypad emulates the P1 register: button/d-pad state
// multiplexed onto a single nibble selected by the two writable bits of
// P1, with a high-to-low transition requesting the joypad interrupt.
package joypad

import (
	"github.com/pixeldrift/gbcore/internal/interrupts"
	"github.com/pixeldrift/gbcore/internal/state"
	"github.com/pixeldrift/gbcore/internal/types"
	"github.com/pixeldrift/gbcore/pkg/bits"
)

// Button identifies a single physical input.
type Button = uint8

const (
	ButtonA      Button = 0x01
	ButtonB      Button = 0x02
	ButtonSelect Button = 0x04
	ButtonStart  Button = 0x08
	ButtonRight  Button = 0x10
	ButtonLeft   Button = 0x20
	ButtonUp     Button = 0x40
	ButtonDown   Button = 0x80
)

// Controller holds the P1 select bits and the live button state.
type Controller struct {
	register uint8
	buttons  Button

	irq *interrupts.Service
}

// New creates a joypad controller with no buttons held, wired into regs.
func New(irq *interrupts.Service, regs *types.HardwareRegisters) *Controller {
	c := &Controller{register: 0x3F, irq: irq}
	regs.RegisterHardware(types.P1, c.write, c.read)
	return c
}

func (c *Controller) read() uint8 {
	switch {
	case c.register&0x10 == 0:
		return c.register &^ (c.buttons >> 4)
	case c.register&0x20 == 0:
		return c.register &^ (c.buttons & 0x0F)
	default:
		return c.register | 0x0F
	}
}

func (c *Controller) write(value uint8) {
	c.register = (c.register & 0xCF) | (value & 0x30)
}

// Press marks key as held, requesting the joypad interrupt on the
// high-to-low transition of the corresponding output line, but only if
// the button's group (d-pad or face buttons) is currently selected.
func (c *Controller) Press(key Button) {
	alreadyDown := c.buttons&key != 0
	c.buttons |= key

	groupSelected := false
	if key <= ButtonStart {
		groupSelected = !bits.Test(c.register, 5)
	} else {
		groupSelected = !bits.Test(c.register, 4)
	}

	if !alreadyDown && groupSelected {
		c.irq.Request(interrupts.JoypadFlag)
	}
}

// Release marks key as no longer held.
func (c *Controller) Release(key Button) {
	c.buttons &^= key
}

func (c *Controller) Save(st *state.State) {
	st.Write8(c.register)
	st.Write8(c.buttons)
}

func (c *Controller) Load(st *state.State) {
	c.register = st.Read8()
	c.buttons = st.Read8()
}

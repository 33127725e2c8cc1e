// Package mmu implements the Game Boy's 64KiB address space: boot ROM
// overlay, cartridge dispatch, work RAM banking, OAM DMA and CGB
// HDMA/VRAM-DMA, and the hardware register table shared by every other
// component. It knows nothing about instruction timing; callers step it
// one M-cycle at a time via Tick.
package mmu

import (
	"github.com/pixeldrift/gbcore/internal/cartridge"
	"github.com/pixeldrift/gbcore/internal/interrupts"
	"github.com/pixeldrift/gbcore/internal/state"
	"github.com/pixeldrift/gbcore/internal/types"
)

// VideoBus is the interface the PPU satisfies for VRAM (0x8000-0x9FFF)
// and OAM (0xFE00-0xFE9F) access. It is attached after construction
// since the PPU itself depends on a *types.HardwareRegisters built
// alongside the MMU.
type VideoBus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// nullVideo stands in for the PPU until AttachVideo is called, letting
// the MMU be constructed and exercised (e.g. in cartridge/timer tests)
// without a full machine.
type nullVideo struct{ raw [0x2000 + 0xA0]uint8 }

func (v *nullVideo) Read(address uint16) uint8 {
	if address < 0xA000 {
		return v.raw[address-0x8000]
	}
	return v.raw[0x2000+(address-0xFE00)]
}

func (v *nullVideo) Write(address uint16, value uint8) {
	if address < 0xA000 {
		v.raw[address-0x8000] = value
		return
	}
	v.raw[0x2000+(address-0xFE00)] = value
}

// MMU is the memory management unit: it owns work RAM, the boot ROM
// overlay, OAM/VRAM DMA, and routes every other address to the
// cartridge, the PPU or the shared hardware register table.
type MMU struct {
	regs *types.HardwareRegisters
	irq  *interrupts.Service

	cart *cartridge.Cartridge
	wram *wram
	hram [0x7F]uint8

	video VideoBus

	bootROM      *BootROM
	bootDisabled bool

	oam  *oamDMA
	hdma *hdma

	cgb         bool
	key0        uint8
	key1        uint8
	doubleSpeed bool
}

// New constructs an MMU wired to cart and sharing regs/irq with the rest
// of the machine (timer, joypad, serial and the APU register their own
// ports into regs independently of the MMU).
func New(cart *cartridge.Cartridge, irq *interrupts.Service, regs *types.HardwareRegisters, cgb bool) *MMU {
	m := &MMU{
		regs:  regs,
		irq:   irq,
		cart:  cart,
		wram:  newWRAM(),
		video: &nullVideo{},
		oam:   &oamDMA{},
		cgb:   cgb,
	}

	regs.RegisterHardware(types.DMA, func(v uint8) { m.oam.start(v) }, types.NoRead)
	regs.RegisterHardware(types.BDIS, func(v uint8) { m.bootDisabled = true }, types.NoRead)

	if cgb {
		m.hdma = newHDMA(regs)
		regs.RegisterHardware(types.KEY0, func(v uint8) { m.key0 = v & 0x0F }, func() uint8 { return m.key0 })
		regs.RegisterHardware(types.KEY1, func(v uint8) { m.key1 = v & 0x01 }, func() uint8 {
			v := uint8(0x7E)
			if m.doubleSpeed {
				v |= 0x80
			}
			if m.key1&0x01 != 0 {
				v |= 0x01
			}
			return v
		})
		regs.RegisterHardware(types.SVBK, func(v uint8) {
			m.wram.bank = v & 0x07
			if m.wram.bank == 0 {
				m.wram.bank = 1
			}
		}, func() uint8 { return m.wram.bank | 0xF8 })
	}

	return m
}

// AttachBootROM installs a boot ROM overlay; without one the machine
// boots directly into cartridge code with biosFinished already implied.
func (m *MMU) AttachBootROM(b *BootROM) {
	m.bootROM = b
}

// AttachVideo replaces the stand-in VRAM/OAM store with the real PPU.
func (m *MMU) AttachVideo(v VideoBus) {
	m.video = v
}

// SwitchSpeed toggles the CGB double-speed mode requested via KEY1/STOP.
// Only meaningful when the KEY1 switch-armed bit was set.
func (m *MMU) SwitchSpeed() {
	if m.key1&0x01 != 0 {
		m.doubleSpeed = !m.doubleSpeed
		m.key1 &^= 0x01
	}
}

func (m *MMU) DoubleSpeed() bool { return m.doubleSpeed }

// Tick advances OAM DMA and HDMA by one M-cycle each; the CPU calls this
// once per M-cycle regardless of whether a transfer is in flight.
func (m *MMU) Tick() {
	m.oam.Tick(m.rawRead, func(offset, v uint8) { m.video.Write(0xFE00+uint16(offset), v) })
	if m.hdma != nil {
		m.hdma.Tick(m.rawRead, m.video.Write)
	}
	// the cartridge RTC (MBC3/HuC3) runs in real time, not CPU time, so
	// it's never doubled in CGB double-speed mode, same as video/audio.
	if m.doubleSpeed {
		m.cart.Tick(2)
	} else {
		m.cart.Tick(4)
	}
}

// SetHBlank notifies HDMA that HBlank mode was entered, permitting the
// next 16-byte block to drain.
func (m *MMU) SetHBlank() {
	if m.hdma != nil {
		m.hdma.SetHBlank()
	}
}

// Blocked reports whether OAM DMA is currently gating CPU bus access to
// everything but HRAM.
func (m *MMU) Blocked() bool {
	return m.oam.Blocking()
}

// HDMAActive reports whether a general-purpose (non-HBlank) VRAM-DMA
// transfer is in flight. Real hardware freezes the CPU entirely for the
// duration of a GDMA copy; the caller uses this to stall instruction
// fetch while still ticking components so the transfer itself (driven by
// Tick) keeps draining.
func (m *MMU) HDMAActive() bool {
	return m.hdma != nil && m.hdma.transferring && m.hdma.mode == gdmaMode
}

// Read returns the byte at address, honoring the boot ROM overlay and
// OAM-DMA bus contention.
func (m *MMU) Read(address uint16) uint8 {
	if m.Blocked() && !(address >= 0xFF80 && address <= 0xFFFE) {
		return 0xFF
	}
	return m.rawRead(address)
}

// rawRead bypasses OAM-DMA gating; used internally by the DMA/HDMA
// engines themselves, which must read the source bus while a transfer
// they own is in flight.
func (m *MMU) rawRead(address uint16) uint8 {
	switch {
	case address <= 0x7FFF:
		if !m.bootDisabled && m.bootROM != nil && m.inBootROM(address) {
			return m.bootROM.Read(address)
		}
		return m.cart.Read(address)
	case address <= 0x9FFF:
		return m.video.Read(address)
	case address <= 0xBFFF:
		return m.cart.Read(address)
	case address <= 0xDFFF:
		return m.wram.Read(address)
	case address <= 0xFDFF:
		return m.wram.Read(address)
	case address <= 0xFE9F:
		return m.video.Read(address)
	case address <= 0xFEFF:
		return 0xFF
	case address == 0xFFFF:
		return m.irq.Read(address)
	case address == interrupts.FlagRegister:
		return m.irq.Read(address)
	case address >= 0xFF80 && address <= 0xFFFE:
		return m.hram[address-0xFF80]
	default:
		return m.regs.Read(address)
	}
}

// Write stores value at address, honoring OAM-DMA bus contention.
func (m *MMU) Write(address uint16, value uint8) {
	if m.Blocked() && !(address >= 0xFF80 && address <= 0xFFFE) {
		return
	}
	switch {
	case address <= 0x7FFF:
		m.cart.Write(address, value)
	case address <= 0x9FFF:
		m.video.Write(address, value)
	case address <= 0xBFFF:
		m.cart.Write(address, value)
	case address <= 0xDFFF:
		m.wram.Write(address, value)
	case address <= 0xFDFF:
		m.wram.Write(address, value)
	case address <= 0xFE9F:
		m.video.Write(address, value)
	case address <= 0xFEFF:
		// unusable, discarded
	case address == 0xFFFF:
		m.irq.Write(address, value)
	case address == interrupts.FlagRegister:
		m.irq.Write(address, value)
	case address >= 0xFF80 && address <= 0xFFFE:
		m.hram[address-0xFF80] = value
	default:
		m.regs.Write(address, value)
	}
}

func (m *MMU) inBootROM(address uint16) bool {
	if address < 0x100 {
		return true
	}
	return m.bootROM.CGB() && address >= 0x200 && address < 0x900
}

func (m *MMU) Save(s *state.State) {
	s.WriteBool(m.bootDisabled)
	m.wram.Save(s)
	s.WriteData(m.hram[:])
	m.oam.Save(s)
	s.Write8(m.key0)
	s.Write8(m.key1)
	s.WriteBool(m.doubleSpeed)
	if m.hdma != nil {
		m.hdma.Save(s)
	}
}

func (m *MMU) Load(s *state.State) {
	m.bootDisabled = s.ReadBool()
	m.wram.Load(s)
	s.ReadData(m.hram[:])
	m.oam.Load(s)
	m.key0 = s.Read8()
	m.key1 = s.Read8()
	m.doubleSpeed = s.ReadBool()
	if m.hdma != nil {
		m.hdma.Load(s)
	}
}

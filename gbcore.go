// Package gbcore implements a cycle-accurate Game Boy and Game Boy
// Color emulation core: CPU, MMU, PPU, APU, cartridge/mapper family,
// joypad and serial, and save-state/battery persistence. It owns no
// window, audio device or input polling of its own — GBCore is driven a
// frame at a time by a host loop, which pulls the finished framebuffer
// and audio samples and pushes button state back in.
package gbcore

import (
	"github.com/pixeldrift/gbcore/internal/apu"
	"github.com/pixeldrift/gbcore/internal/cartridge"
	"github.com/pixeldrift/gbcore/internal/cpu"
	"github.com/pixeldrift/gbcore/internal/interrupts"
	"github.com/pixeldrift/gbcore/internal/joypad"
	"github.com/pixeldrift/gbcore/internal/mmu"
	"github.com/pixeldrift/gbcore/internal/ppu"
	"github.com/pixeldrift/gbcore/internal/ppu/palette"
	"github.com/pixeldrift/gbcore/internal/serial"
	"github.com/pixeldrift/gbcore/internal/timer"
	"github.com/pixeldrift/gbcore/internal/types"
	"github.com/pixeldrift/gbcore/pkg/corelog"
)

// CyclesPerFrame is the number of (single-speed) T-cycles in one video
// frame: 154 scanlines of 456 dots each.
const CyclesPerFrame = 70224

// startingRegisterValues holds the power-on register contents a real
// boot ROM would have written by the time it hands off to cartridge
// code at 0x100. Used only when no boot ROM is supplied.
var startingRegisterValues = map[types.HardwareAddress]uint8{
	types.NR10: 0x80,
	types.NR11: 0xBF,
	types.NR12: 0xF3,
	types.NR14: 0xBF,
	types.NR21: 0x3F,
	types.NR22: 0x00,
	types.NR24: 0xBF,
	types.NR30: 0x7F,
	types.NR31: 0xFF,
	types.NR32: 0x9F,
	types.NR33: 0xBF,
	types.NR41: 0xFF,
	types.NR42: 0x00,
	types.NR43: 0x00,
	types.NR50: 0x77,
	types.NR51: 0xF3,
	types.NR52: 0xF1,
	types.LCDC: 0x91,
	types.STAT: 0x80,
	types.BGP:  0xFC,
}

// GBCore is a fully wired Game Boy. Frame() steps it by exactly one
// video frame's worth of T-cycles; everything else is exposed for
// inspection, persistence and input.
type GBCore struct {
	CPU        *cpu.CPU
	MMU        *mmu.MMU
	PPU        *ppu.PPU
	APU        *apu.APU
	Cartridge  *cartridge.Cartridge
	Joypad     *joypad.Controller
	Timer      *timer.Controller
	Serial     *serial.Controller
	Interrupts *interrupts.Service

	model  types.Model
	system systemTag

	romPath     string
	romImage    []byte
	totalCycles uint64
	paused      bool

	log corelog.Logger

	bootROM        []byte
	forcedModel    types.Model
	preferModel    PreferModel
	initialBattery []byte

	// DrawFrame is invoked once per completed frame with the RGB
	// framebuffer GBCore just rendered. isFirstFrame is true for the
	// first frame produced after New, and again after each Reset (useful for hosts
	// that want to defer window creation until they have pixels).
	DrawFrame func(fb *[ppu.ScreenHeight][ppu.ScreenWidth]palette.RGB, isFirstFrame bool)

	firstFrameDrawn bool
}

// systemTag records which of the three boot configurations New chose,
// distinct from the underlying types.Model (DMG-compat still runs CGB
// silicon, just colorizing a DMG-only cartridge).
type systemTag uint8

const (
	systemDMG systemTag = iota
	systemCGB
	systemDMGCompat
)

// New parses rom, selects the matching mapper and hardware model, and
// returns a machine ready to run from its post-boot (or boot-ROM) entry
// point. A non-success LoadResult means g is nil.
func New(rom []byte, opts ...Option) (*GBCore, LoadResult) {
	g := &GBCore{
		log:         corelog.NewNull(),
		preferModel: PreferGBC,
		forcedModel: types.Unset,
	}
	for _, opt := range opts {
		opt(g)
	}

	if len(rom) < 0x150 {
		g.log.Errorf("rom image too small (%d bytes)", len(rom))
		return nil, InvalidROM
	}
	if !cartridge.VerifyChecksum(rom) {
		g.log.Warnf("cartridge header checksum mismatch, loading anyway")
	}

	cart, err := cartridge.Load(rom, g.initialBattery)
	if err != nil {
		if err == cartridge.InvalidBattery {
			g.log.Warnf("battery save rejected, starting with blank cartridge RAM")
		} else {
			g.log.Errorf("failed to load cartridge: %v", err)
			return nil, InvalidROM
		}
	}
	g.Cartridge = cart
	g.romImage = rom

	g.model, g.system = g.resolveModel(cart.Header)

	g.Interrupts = interrupts.NewService()
	regs := &types.HardwareRegisters{}

	g.MMU = mmu.New(cart, g.Interrupts, regs, g.system != systemDMG)
	g.Timer = timer.NewController(g.Interrupts, regs)
	g.Serial = serial.NewController(g.Interrupts, regs)
	g.Joypad = joypad.New(g.Interrupts, regs)
	g.PPU = ppu.New(g.Interrupts, regs, g.system != systemDMG)
	g.APU = apu.New(regs, g.model)

	g.MMU.AttachVideo(g.PPU)
	g.PPU.AttachHBlankHook(g.MMU.SetHBlank)

	g.CPU = cpu.New(g.model, g.MMU, g.Interrupts, g.Timer, g.PPU, g.APU, g.Serial)

	g.PPU.FrameReady = func() {
		if g.DrawFrame != nil {
			g.DrawFrame(&g.PPU.Framebuffer, !g.firstFrameDrawn)
		}
		g.firstFrameDrawn = true
	}

	if len(g.bootROM) > 0 {
		br, bootErr := mmu.NewBootROM(g.bootROM)
		if bootErr != nil {
			g.log.Warnf("ignoring invalid boot rom: %v", bootErr)
			g.bootROM = nil
		} else {
			g.MMU.AttachBootROM(br)
			g.CPU.PC, g.CPU.SP = 0x0000, 0x0000
		}
	}

	if len(g.bootROM) == 0 {
		g.initializePostBoot(rom)
	}

	return g, SuccessROM
}

// resolveModel picks the hardware model and the real/compat distinction
// New.DrawFrame consumers don't need to know about: a model pinned with
// WithModel is used as is; otherwise a CGBOnly cartridge always boots
// CGB hardware (ForceDMG can't turn a CGB-only cartridge into a DMG one,
// just as on real silicon) and everything else follows PreferModel.
func (g *GBCore) resolveModel(h cartridge.Header) (types.Model, systemTag) {
	if g.forcedModel != types.Unset {
		tag := systemDMG
		if g.forcedModel == types.CGB0 || g.forcedModel == types.CGBABC {
			tag = systemCGB
		}
		return g.forcedModel, tag
	}

	switch h.CGBSupport {
	case cartridge.CGBOnly:
		return types.CGBABC, systemCGB
	case cartridge.CGBSupported:
		if g.preferModel == PreferDMG || g.preferModel == ForceDMG {
			return types.DMGABC, systemDMG
		}
		return types.CGBABC, systemCGB
	default: // DMGOnly
		if g.preferModel == PreferDMG || g.preferModel == ForceDMG {
			return types.DMGABC, systemDMG
		}
		return types.CGBABC, systemDMGCompat
	}
}

// initializePostBoot sets CPU registers and hardware registers to the
// values a real boot ROM leaves behind, for cartridges run without one.
// On DMG-compat boots it also colorizes the framebuffer from the CGB
// boot ROM's built-in palette table.
func (g *GBCore) initializePostBoot(rom []byte) {
	regVals := g.model.Registers()
	g.CPU.A, g.CPU.F = regVals[0], regVals[1]
	g.CPU.B, g.CPU.C = regVals[2], regVals[3]
	g.CPU.D, g.CPU.E = regVals[4], regVals[5]
	g.CPU.H, g.CPU.L = regVals[6], regVals[7]
	g.CPU.SP = 0xFFFE
	g.CPU.PC = 0x0100

	for addr, v := range startingRegisterValues {
		g.MMU.Write(uint16(addr), v)
	}
	// BDIS: boot ROM overlay is permanently disabled from the first
	// instruction when there is no boot ROM to disable it.
	g.MMU.Write(uint16(types.BDIS), 0x01)

	if g.system == systemDMGCompat {
		entryID, disambiguation := titlePaletteKey(rom)
		if entry, ok := palette.CompatibilityEntryFor(entryID, disambiguation); ok {
			g.PPU.LoadCompatibilityPalette(entry)
		}
	}
}

// titlePaletteKey reproduces the CGB boot ROM's colorization lookup:
// an 8-bit sum of the 16 title bytes, disambiguated by the title's 4th
// character when two titles collide on the same checksum.
func titlePaletteKey(rom []byte) (entryID, disambiguation uint8) {
	var sum uint8
	for addr := 0x134; addr < 0x144; addr++ {
		sum += rom[addr]
	}
	return sum, rom[0x137]
}

// Frame runs the machine for exactly one video frame: CyclesPerFrame
// CPU T-cycles at single speed, twice that in double speed, where the
// PPU/APU see only half a dot per CPU T-cycle (see CPU.Step).
func (g *GBCore) Frame() {
	if g.paused {
		return
	}
	budget := uint32(CyclesPerFrame)
	if g.MMU.DoubleSpeed() {
		budget *= 2
	}
	var ticked uint32
	for ticked < budget {
		n := uint32(g.CPU.Step())
		ticked += n
		g.totalCycles += uint64(n)
	}
}

// Pause stops Frame from advancing the machine; the last rendered
// framebuffer remains valid for redrawing.
func (g *GBCore) Pause()       { g.paused = true }
func (g *GBCore) Resume()      { g.paused = false }
func (g *GBCore) Paused() bool { return g.paused }

// Press and Release forward a physical button press/release to the
// joypad controller, requesting the joypad interrupt on a high-to-low
// P1 transition exactly as real hardware does.
func (g *GBCore) Press(key joypad.Button)   { g.Joypad.Press(key) }
func (g *GBCore) Release(key joypad.Button) { g.Joypad.Release(key) }

// ReadAudioSamples drains up to len(buf)/2 interleaved stereo i16
// frames produced since the last call.
func (g *GBCore) ReadAudioSamples(buf []int16) int {
	return g.APU.ReadSamples(buf)
}

// SaveBattery returns the cartridge's persistent RAM image (if any),
// suitable for writing to a `.sav` file and feeding back to
// WithSaveRAM on the next load.
func (g *GBCore) SaveBattery() []byte {
	return g.Cartridge.SaveBattery()
}

// Reset reinitializes the machine in place. preserveSRAM keeps the
// cartridge's current battery RAM instead of zeroing it; the CPU,
// video and audio state always reinitialize as if from a cold boot.
func (g *GBCore) Reset(preserveSRAM bool) {
	var ram []byte
	if preserveSRAM {
		ram = append([]byte(nil), g.Cartridge.RAM()...)
	}

	romCopy := g.romImage
	cart, err := cartridge.Load(romCopy, nil)
	if err != nil {
		g.log.Errorf("reset: failed to reload cartridge: %v", err)
		return
	}
	if ram != nil {
		copy(cart.RAM(), ram)
	}
	g.Cartridge = cart

	g.Interrupts = interrupts.NewService()
	regs := &types.HardwareRegisters{}
	g.MMU = mmu.New(cart, g.Interrupts, regs, g.system != systemDMG)
	g.Timer = timer.NewController(g.Interrupts, regs)
	g.Serial = serial.NewController(g.Interrupts, regs)
	g.Joypad = joypad.New(g.Interrupts, regs)
	g.PPU = ppu.New(g.Interrupts, regs, g.system != systemDMG)
	g.APU = apu.New(regs, g.model)
	g.MMU.AttachVideo(g.PPU)
	g.PPU.AttachHBlankHook(g.MMU.SetHBlank)
	g.CPU = cpu.New(g.model, g.MMU, g.Interrupts, g.Timer, g.PPU, g.APU, g.Serial)
	g.PPU.FrameReady = func() {
		if g.DrawFrame != nil {
			g.DrawFrame(&g.PPU.Framebuffer, !g.firstFrameDrawn)
		}
		g.firstFrameDrawn = true
	}

	if len(g.bootROM) > 0 {
		if br, bootErr := mmu.NewBootROM(g.bootROM); bootErr == nil {
			g.MMU.AttachBootROM(br)
			g.CPU.PC, g.CPU.SP = 0, 0
		} else {
			g.initializePostBoot(romCopy)
		}
	} else {
		g.initializePostBoot(romCopy)
	}

	g.totalCycles = 0
	g.firstFrameDrawn = false
}

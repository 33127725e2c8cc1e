// Package ppu implements the Game Boy's picture processing unit: the
// OAM-scan + pixel-FIFO pipeline, the mode state machine and its STAT
// interrupt timing, and DMG/CGB palette conversion.
package ppu

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/pixeldrift/gbcore/internal/interrupts"
	"github.com/pixeldrift/gbcore/internal/ppu/lcd"
	"github.com/pixeldrift/gbcore/internal/ppu/palette"
	"github.com/pixeldrift/gbcore/internal/state"
	"github.com/pixeldrift/gbcore/internal/types"
)

const (
	ScreenWidth  = 160
	ScreenHeight = 144

	lineDots       = 456
	oamDots        = 80
	vblankLines    = 10
	disableDelayTC = 4560
)

// PPU is the picture processing unit. It owns VRAM and OAM directly
// (the MMU's VideoBus delegates 0x8000-0x9FFF/0xFE00-0xFE9F here) and
// steps its mode FSM and pixel FIFO one T-cycle at a time via Tick.
type PPU struct {
	regs *types.HardwareRegisters
	irq  *interrupts.Service
	cgb  bool

	vram [2][0x2000]uint8
	vbk  uint8
	oamMem [0xA0]uint8

	lcdc *lcd.Controller
	stat *lcd.Status

	scy, scx, ly, lyc, wy, wx uint8
	bgp, obp0, obp1           uint8

	bgPalette  *palette.CGBPalette
	objPalette *palette.CGBPalette
	opri       uint8 // CGB object priority mode: 0=OAM index, 1=X-coordinate (DMG-style)

	dot           int
	mode          lcd.Mode
	statLine      bool
	lcdWasOn      bool
	frameSkip     bool
	disableTicks  int
	lineDotsTotal int

	selected  []selectedObj
	fetcher   bgFetcher
	objFetcher objFetcher
	bgFIFO    []bgPixel
	objFIFO   []objPixel

	discardRemaining uint8
	lx               uint8
	windowActive     bool
	windowLineCtr    uint8
	windowTriggered  bool // WY==LY latched true for the rest of the frame

	Framebuffer [ScreenHeight][ScreenWidth]palette.RGB

	// onHBlank notifies the MMU's HDMA engine that one more VRAM-DMA
	// block may drain; set by the top-level machine after both are
	// constructed.
	onHBlank func()
	// FrameReady is invoked once per completed frame (VBlank entry).
	FrameReady func()
}

// New constructs a PPU and binds its registers into regs.
func New(irq *interrupts.Service, regs *types.HardwareRegisters, cgb bool) *PPU {
	p := &PPU{
		regs:       regs,
		irq:        irq,
		cgb:        cgb,
		lcdc:       lcd.NewController(),
		stat:       lcd.NewStatus(),
		bgPalette:  palette.NewCGBPalette(),
		objPalette: palette.NewCGBPalette(),
	}
	p.bindRegisters()
	return p
}

func (p *PPU) bindRegisters() {
	r := p.regs
	r.RegisterHardware(types.LCDC, p.lcdc.Write, p.lcdc.Read)
	r.RegisterHardware(types.STAT, p.stat.Write, p.stat.Read)
	r.RegisterHardware(types.SCY, func(v uint8) { p.scy = v }, func() uint8 { return p.scy })
	r.RegisterHardware(types.SCX, func(v uint8) { p.scx = v }, func() uint8 { return p.scx })
	r.RegisterHardware(types.LY, types.NoWrite, func() uint8 { return p.readLY() })
	r.RegisterHardware(types.LYC, func(v uint8) { p.lyc = v }, func() uint8 { return p.lyc })
	r.RegisterHardware(types.WY, func(v uint8) { p.wy = v }, func() uint8 { return p.wy })
	r.RegisterHardware(types.WX, func(v uint8) { p.wx = v }, func() uint8 { return p.wx })
	r.RegisterHardware(types.BGP, func(v uint8) { p.bgp = v }, func() uint8 { return p.bgp })
	r.RegisterHardware(types.OBP0, func(v uint8) { p.obp0 = v }, func() uint8 { return p.obp0 })
	r.RegisterHardware(types.OBP1, func(v uint8) { p.obp1 = v }, func() uint8 { return p.obp1 })

	if p.cgb {
		r.RegisterHardware(types.BCPS, p.bgPalette.SetIndex, p.bgPalette.GetIndex)
		r.RegisterHardware(types.BCPD, p.bgPalette.Write, p.bgPalette.Read)
		r.RegisterHardware(types.OCPS, p.objPalette.SetIndex, p.objPalette.GetIndex)
		r.RegisterHardware(types.OCPD, p.objPalette.Write, p.objPalette.Read)
		r.RegisterHardware(types.OPRI, func(v uint8) { p.opri = v & 0x01 }, func() uint8 { return p.opri })
		r.RegisterHardware(types.VBK, p.SetVRAMBank, func() uint8 { return p.vbk | 0xFE })
	}
}

func (p *PPU) readLY() uint8 {
	if p.ly == 153 && p.dot >= lineDots-8 {
		return 0
	}
	return p.ly
}

// AttachHBlankHook wires the callback invoked on entry to HBlank mode,
// used to step CGB VRAM-DMA one block at a time.
func (p *PPU) AttachHBlankHook(f func()) { p.onHBlank = f }

// VideoBus: Read/Write implement the MMU-facing VRAM/OAM interface.
func (p *PPU) Read(address uint16) uint8 {
	switch {
	case address < 0xA000:
		bank := uint16(0)
		if p.cgb {
			bank = uint16(p.vbk)
		}
		return p.vram[bank][address-0x8000]
	default:
		return p.oamMem[address-0xFE00]
	}
}

func (p *PPU) Write(address uint16, value uint8) {
	switch {
	case address < 0xA000:
		bank := uint16(0)
		if p.cgb {
			bank = uint16(p.vbk)
		}
		p.vram[bank][address-0x8000] = value
	default:
		p.oamMem[address-0xFE00] = value
	}
}

// SetVRAMBank backs writes to the VBK register, which the PPU binds
// itself in bindRegisters.
func (p *PPU) SetVRAMBank(bank uint8) { p.vbk = bank & 0x01 }

// Tick advances the PPU by tCycles T-cycles.
func (p *PPU) Tick(tCycles int) {
	for i := 0; i < tCycles; i++ {
		p.tickOne()
	}
}

func (p *PPU) tickOne() {
	if !p.lcdc.Enabled {
		if p.lcdWasOn {
			p.disableTicks++
			if p.disableTicks >= disableDelayTC {
				p.clearFramebuffer()
				p.disableTicks = 0
				p.lcdWasOn = false
			}
		}
		return
	}
	if !p.lcdWasOn {
		// LCD just turned on: start a fresh frame, first one blanked.
		p.lcdWasOn = true
		p.frameSkip = true
		p.ly = 0
		p.dot = 0
		p.windowLineCtr = 0
		p.windowTriggered = false
		p.enterMode(lcd.OAMScan)
	}

	p.dot++
	switch p.mode {
	case lcd.OAMScan:
		if p.dot == oamDots {
			p.beginTransfer()
		}
	case lcd.Transfer:
		p.tickTransfer()
	case lcd.HBlank, lcd.VBlank:
		// nothing to do until the line's dot budget elapses
	}

	if p.dot >= p.currentLineDots() {
		p.dot = 0
		p.advanceLine()
	}

	p.updateCoincidence()
	p.evaluateStatLine()
}

func (p *PPU) currentLineDots() int {
	if p.frameSkip && p.ly == 0 && p.mode == lcd.HBlank {
		return lineDots - 4
	}
	return lineDots
}

func (p *PPU) enterMode(m lcd.Mode) {
	p.mode = m
	p.stat.Mode = m
	if m == lcd.HBlank && p.onHBlank != nil {
		p.onHBlank()
	}
	if m == lcd.VBlank {
		p.irq.Request(interrupts.VBlankFlag)
		if p.FrameReady != nil && !p.frameSkip {
			p.FrameReady()
		}
	}
	if m == lcd.OAMScan {
		p.scanOAM()
	}
}

func (p *PPU) beginTransfer() {
	p.enterMode(lcd.Transfer)
	p.lx = 0
	p.resetFetcher()
	p.objFIFO = p.objFIFO[:0]
	p.windowActive = false
	if p.wy == p.ly {
		p.windowTriggered = true
	}
}

func (p *PPU) tickTransfer() {
	if p.windowEnabledNow() && !p.windowActive && p.windowTriggered && p.lx+7 >= p.wx {
		p.windowActive = true
		p.fetcher = bgFetcher{window: true, windowLine: p.windowLineCtr}
		p.bgFIFO = p.bgFIFO[:0]
	}

	if p.tickObjFetch() {
		return
	}
	p.tryStartObjFetch()
	if p.objFetcher.active {
		return
	}

	p.tickFetcher()
	if len(p.bgFIFO) == 0 {
		return
	}
	if p.discardRemaining > 0 && !p.windowActive {
		p.bgFIFO = p.bgFIFO[1:]
		p.discardRemaining--
		return
	}

	bg := p.bgFIFO[0]
	p.bgFIFO = p.bgFIFO[1:]
	var obj objPixel
	if len(p.objFIFO) > 0 {
		obj = p.objFIFO[0]
		p.objFIFO = p.objFIFO[1:]
	}

	p.Framebuffer[p.ly][p.lx] = p.resolvePixel(bg, obj)
	p.lx++
	if p.lx == ScreenWidth {
		if p.windowActive {
			p.windowLineCtr++
		}
		p.enterMode(lcd.HBlank)
	}
}

func (p *PPU) windowEnabledNow() bool {
	return p.lcdc.WindowEnabled && (p.cgb || p.lcdc.BackgroundEnabled)
}

func (p *PPU) resolvePixel(bg bgPixel, obj objPixel) palette.RGB {
	bgColor := bg.color
	if !p.lcdc.BackgroundEnabled && !p.cgb {
		bgColor = 0
	}
	objWins := obj.valid && p.lcdc.SpriteEnabled
	if objWins {
		if p.cgb {
			masterPriorityOff := p.lcdc.BackgroundEnabled == false
			bgForcesPriority := !masterPriorityOff && bgColor != 0 && (bg.priority || obj.prio)
			if bgForcesPriority {
				objWins = false
			}
		} else {
			if obj.prio && bgColor != 0 {
				objWins = false
			}
		}
	}
	if objWins {
		if p.cgb {
			return palette.FromCGB555(p.objPalette.RGB555(obj.cgbPal, obj.color), true)
		}
		return p.dmgPaletteColor(p.paletteReg(obj.dmgPal), obj.color)
	}
	if p.cgb {
		return palette.FromCGB555(p.bgPalette.RGB555(bg.cgbPal, bgColor), true)
	}
	return p.dmgPaletteColor(p.bgp, bgColor)
}

func (p *PPU) paletteReg(which uint8) uint8 {
	if which == 1 {
		return p.obp1
	}
	return p.obp0
}

func (p *PPU) dmgPaletteColor(reg uint8, colorID uint8) palette.RGB {
	shade := (reg >> (colorID * 2)) & 0x03
	return palette.GetColour(shade)
}

func (p *PPU) advanceLine() {
	if p.mode == lcd.Transfer || p.mode == lcd.OAMScan {
		// The fetcher overran its dot budget (e.g. an unusually long run
		// of sprite fetches); force HBlank rather than desyncing LY from
		// the dot counter forever.
		p.enterMode(lcd.HBlank)
	}
	switch p.mode {
	case lcd.HBlank:
		p.frameSkip = false
		p.ly++
		if p.ly == ScreenHeight {
			p.enterMode(lcd.VBlank)
		} else {
			p.enterMode(lcd.OAMScan)
		}
	case lcd.VBlank:
		p.ly++
		if p.ly == ScreenHeight+vblankLines {
			p.ly = 0
			p.windowLineCtr = 0
			p.windowTriggered = false
			p.enterMode(lcd.OAMScan)
		}
	}
}

func (p *PPU) updateCoincidence() {
	p.stat.Coincidence = p.readLY() == p.lyc
}

func (p *PPU) evaluateStatLine() {
	line := p.stat.Line()
	if line && !p.statLine {
		p.irq.Request(interrupts.LCDFlag)
	}
	p.statLine = line
}

func (p *PPU) clearFramebuffer() {
	for y := range p.Framebuffer {
		for x := range p.Framebuffer[y] {
			p.Framebuffer[y][x] = palette.RGB{0xFF, 0xFF, 0xFF}
		}
	}
	p.ly = 0
}

// LoadCompatibilityPalette seeds BG/OBJ CGB palette RAM from a
// DMG-compat table entry, used when a CGB boot ROM colorizes a DMG
// cartridge.
func (p *PPU) LoadCompatibilityPalette(e palette.CompatibilityEntry) {
	p.bgPalette.LoadCompatibilityEntry(e.BG)
	p.objPalette.LoadCompatibilityEntry(e.OBJ0)
}

// DumpTileData renders the full 384-tile VRAM tile set (bank 0) as a
// debug image, for host-side tooling rather than the core itself.
func (p *PPU) DumpTileData() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16*8, 24*8))
	for tile := 0; tile < 384; tile++ {
		base := tile * 16
		for row := 0; row < 8; row++ {
			lo, hi := p.vram[0][base+row*2], p.vram[0][base+row*2+1]
			decoded := decodeTileRow(lo, hi)
			for col, c := range decoded {
				rgb := palette.GetColour(c)
				x := (tile%16)*8 + col
				y := (tile/16)*8 + row
				img.Set(x, y, rgbaOf(rgb))
			}
		}
	}
	return img
}

// DumpBackgroundTileMap renders the active 256x256 background tile map,
// upscaled 2x for visibility in host-side debug tooling.
func (p *PPU) DumpBackgroundTileMap() image.Image {
	src := image.NewRGBA(image.Rect(0, 0, 256, 256))
	mapBase := p.lcdc.BackgroundTileMapAddress - 0x8000
	for row := 0; row < 32; row++ {
		for col := 0; col < 32; col++ {
			idx := p.vram[0][mapBase+uint16(row*32+col)]
			base := int(idx) * 16
			if p.lcdc.UsingSignedTileData() {
				base = int(0x9000-0x8000) + int(int8(idx))*16
			}
			for ty := 0; ty < 8; ty++ {
				lo, hi := p.vram[0][base+ty*2], p.vram[0][base+ty*2+1]
				decoded := decodeTileRow(lo, hi)
				for tx, c := range decoded {
					src.Set(col*8+tx, row*8+ty, rgbaOf(palette.GetColour(c)))
				}
			}
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, 512, 512))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func rgbaOf(c palette.RGB) color.Color {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: 0xFF}
}

func (p *PPU) Save(s *state.State) {
	s.WriteData(p.vram[0][:])
	s.WriteData(p.vram[1][:])
	s.WriteData(p.oamMem[:])
	s.Write8(p.vbk)
	s.Write8(p.scy)
	s.Write8(p.scx)
	s.Write8(p.ly)
	s.Write8(p.lyc)
	s.Write8(p.wy)
	s.Write8(p.wx)
	s.Write8(p.bgp)
	s.Write8(p.obp0)
	s.Write8(p.obp1)
	s.Write8(p.opri)
	s.Write32(uint32(p.dot))
	s.Write8(uint8(p.mode))
	s.WriteBool(p.lcdWasOn)
	s.WriteBool(p.frameSkip)
	s.Write8(p.windowLineCtr)
	s.WriteBool(p.windowTriggered)
}

func (p *PPU) Load(s *state.State) {
	s.ReadData(p.vram[0][:])
	s.ReadData(p.vram[1][:])
	s.ReadData(p.oamMem[:])
	p.vbk = s.Read8()
	p.scy = s.Read8()
	p.scx = s.Read8()
	p.ly = s.Read8()
	p.lyc = s.Read8()
	p.wy = s.Read8()
	p.wx = s.Read8()
	p.bgp = s.Read8()
	p.obp0 = s.Read8()
	p.obp1 = s.Read8()
	p.opri = s.Read8()
	p.dot = int(s.Read32())
	p.mode = lcd.Mode(s.Read8())
	p.lcdWasOn = s.ReadBool()
	p.frameSkip = s.ReadBool()
	p.windowLineCtr = s.Read8()
	p.windowTriggered = s.ReadBool()
}

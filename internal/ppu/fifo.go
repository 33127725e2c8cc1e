package ppu

// bgPixel is one pixel produced by the background/window fetcher,
// carrying enough CGB attribute state to resolve priority against an
// overlapping sprite pixel at pop time.
type bgPixel struct {
	color    uint8
	cgbPal   uint8
	priority bool // CGB BG-over-OBJ attribute bit
}

// fetchStep names the four-phase tile fetcher state machine; each
// non-push phase takes 2 T-cycles, matching real hardware.
type fetchStep uint8

const (
	stepTileNo fetchStep = iota
	stepDataLow
	stepDataHigh
	stepPush
)

// bgFetcher walks the BG/window tile pipeline one T-cycle at a time,
// filling bgFIFO with 8 pixels every time it completes a tile.
type bgFetcher struct {
	step      fetchStep
	stepCycle uint8 // 0 or 1 within the current 2-T-cycle phase
	fetchX    uint8 // tile column counter, wraps at 32

	tileIndex uint8
	attr      tileAttr
	lo, hi    uint8

	window     bool
	windowLine uint8
}

type tileAttr struct {
	priority bool
	yFlip    bool
	xFlip    bool
	bank     uint8
	palette  uint8
}

func (p *PPU) resetFetcher() {
	p.fetcher = bgFetcher{}
	p.bgFIFO = p.bgFIFO[:0]
	p.discardRemaining = p.scx % 8
}

// tickFetcher advances the BG/window fetcher by one T-cycle. It never
// runs while an object fetch (objFetcher) is in progress.
func (p *PPU) tickFetcher() {
	f := &p.fetcher
	switch f.step {
	case stepTileNo:
		if f.stepCycle == 0 {
			f.stepCycle = 1
			return
		}
		f.stepCycle = 0
		p.fetchTileNo(f)
		f.step = stepDataLow
	case stepDataLow:
		if f.stepCycle == 0 {
			f.stepCycle = 1
			return
		}
		f.stepCycle = 0
		f.lo = p.tileDataByte(f, 0)
		f.step = stepDataHigh
	case stepDataHigh:
		if f.stepCycle == 0 {
			f.stepCycle = 1
			return
		}
		f.stepCycle = 0
		f.hi = p.tileDataByte(f, 1)
		f.step = stepPush
	case stepPush:
		if len(p.bgFIFO) != 0 {
			return // only pushes into an empty FIFO
		}
		row := decodeTileRow(f.lo, f.hi)
		if f.attr.xFlip {
			row = [8]uint8{row[7], row[6], row[5], row[4], row[3], row[2], row[1], row[0]}
		}
		for _, c := range row {
			p.bgFIFO = append(p.bgFIFO, bgPixel{color: c, cgbPal: f.attr.palette, priority: f.attr.priority})
		}
		f.fetchX++
		f.step = stepTileNo
	}
}

func (p *PPU) fetchTileNo(f *bgFetcher) {
	var mapBase uint16
	var row, col uint8
	if f.window {
		mapBase = p.lcdc.WindowTileMapAddress
		row = f.windowLine / 8
		col = f.fetchX
	} else {
		mapBase = p.lcdc.BackgroundTileMapAddress
		row = (p.ly + p.scy) / 8
		col = (p.scx/8 + f.fetchX) & 0x1F
	}
	addr := mapBase - 0x8000 + uint16(row&0x1F)*32 + uint16(col)
	f.tileIndex = p.vram[0][addr]
	if p.cgb {
		a := p.vram[1][addr]
		f.attr = tileAttr{
			priority: a&0x80 != 0,
			yFlip:    a&0x40 != 0,
			xFlip:    a&0x20 != 0,
			bank:     (a >> 3) & 0x01,
			palette:  a & 0x07,
		}
	} else {
		f.attr = tileAttr{}
	}
}

func (p *PPU) tileDataByte(f *bgFetcher, plane uint16) uint8 {
	var tileRow uint8
	if f.window {
		tileRow = f.windowLine % 8
	} else {
		tileRow = (p.ly + p.scy) % 8
	}
	if f.attr.yFlip {
		tileRow = 7 - tileRow
	}
	var base uint16
	if p.lcdc.UsingSignedTileData() {
		base = uint16(0x9000-0x8000) + uint16(int16(int8(f.tileIndex)))*16
	} else {
		base = uint16(f.tileIndex) * 16
	}
	addr := base + uint16(tileRow)*2 + plane
	return p.vram[f.attr.bank][addr]
}

// objFetcher fetches one selected sprite's two data bytes (tile index
// is already known from OAM) in 4 T-cycles, then merges into objFIFO.
type objFetcher struct {
	active    bool
	obj       *selectedObj
	stepCycle uint8
}

func (p *PPU) tryStartObjFetch() {
	if p.objFetcher.active {
		return
	}
	screenX := p.lx
	for i := range p.selected {
		o := &p.selected[i]
		if o.fetched {
			continue
		}
		if int(o.x) <= int(screenX)+8 {
			p.objFetcher = objFetcher{active: true, obj: o}
			return
		}
	}
}

// tickObjFetch advances an in-flight object fetch; returns true while
// it is consuming cycles (the BG fetcher must stall).
func (p *PPU) tickObjFetch() bool {
	f := &p.objFetcher
	if !f.active {
		return false
	}
	f.stepCycle++
	if f.stepCycle == 4 {
		p.mergeObjPixels(f.obj)
		f.obj.fetched = true
		p.objFetcher = objFetcher{}
	}
	return true
}

func (p *PPU) mergeObjPixels(o *selectedObj) {
	height := int(p.lcdc.SpriteHeight)
	row := int(p.ly) - (int(o.y) - 16)
	if o.yFlip() {
		row = height - 1 - row
	}
	tile := o.tile
	if height == 16 {
		tile &^= 0x01
		if row >= 8 {
			tile |= 0x01
			row -= 8
		}
	}
	bank := uint8(0)
	if p.cgb {
		bank = o.cgbBank()
	}
	addr := uint16(tile)*16 + uint16(row)*2
	lo, hi := p.vram[bank][addr], p.vram[bank][addr+1]
	decoded := decodeTileRow(lo, hi)
	if o.xFlip() {
		decoded = [8]uint8{decoded[7], decoded[6], decoded[5], decoded[4], decoded[3], decoded[2], decoded[1], decoded[0]}
	}
	for i := 0; i < 8; i++ {
		slot := int(o.x) - 8 - int(p.lx) + i
		if slot < 0 {
			continue
		}
		for slot >= len(p.objFIFO) {
			p.objFIFO = append(p.objFIFO, objPixel{})
		}
		if p.objFIFO[slot].valid {
			continue // earlier (higher priority) sprite already owns this dot
		}
		if decoded[i] == 0 {
			continue // transparent: leaves the slot empty for a later sprite
		}
		p.objFIFO[slot] = objPixel{
			color:  decoded[i],
			valid:  true,
			prio:   o.priority(),
			dmgPal: o.dmgPalette(),
			cgbPal: o.cgbPalette(),
		}
	}
}

package ppu

// objAttr is one 4-byte OAM entry as deposited at 0xFE00-0xFE9F.
type objAttr struct {
	y, x, tile, flags uint8
}

func (o objAttr) priority() bool { return o.flags&0x80 != 0 }
func (o objAttr) yFlip() bool    { return o.flags&0x40 != 0 }
func (o objAttr) xFlip() bool    { return o.flags&0x20 != 0 }
func (o objAttr) dmgPalette() uint8 {
	if o.flags&0x10 != 0 {
		return 1
	}
	return 0
}
func (o objAttr) cgbBank() uint8    { return (o.flags >> 3) & 0x01 }
func (o objAttr) cgbPalette() uint8 { return o.flags & 0x07 }

// selectedObj is a sprite chosen by OAM scan for the current line.
// Priority (DMG: X ascending; CGB: OAM order) is encoded entirely by
// position in PPU.selected, so the object fetcher's first-match-wins
// scan naturally resolves overlap without a separate priority field.
type selectedObj struct {
	objAttr
	fetched bool
}

type objPixel struct {
	color  uint8
	valid  bool
	prio   bool
	dmgPal uint8
	cgbPal uint8
}

// scanOAM selects up to 10 sprites whose vertical extent includes ly.
// Selection preserves OAM order; on DMG the selection is then
// stable-sorted by X ascending per real hardware's draw priority.
func (p *PPU) scanOAM() {
	p.selected = p.selected[:0]
	height := int(p.lcdc.SpriteHeight)
	for i := 0; i < 40 && len(p.selected) < 10; i++ {
		raw := p.oamMem[i*4 : i*4+4]
		o := objAttr{y: raw[0], x: raw[1], tile: raw[2], flags: raw[3]}
		top := int(o.y) - 16
		if int(p.ly) < top || int(p.ly) >= top+height {
			continue
		}
		p.selected = append(p.selected, selectedObj{objAttr: o})
	}
	if !p.cgb {
		for i := 1; i < len(p.selected); i++ {
			for j := i; j > 0 && p.selected[j].x < p.selected[j-1].x; j-- {
				p.selected[j], p.selected[j-1] = p.selected[j-1], p.selected[j]
			}
		}
	}
}

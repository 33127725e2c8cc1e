package mmu

import "github.com/pixeldrift/gbcore/internal/state"

// oamDMA models the 0xFF46 OAM DMA transfer: writing a source page
// triggers a 160-byte copy into OAM, one byte per M-cycle, preceded by a
// single M-cycle startup delay during which the bus is not yet blocked.
// A write while a transfer is in flight restarts it from the new page at
// once; the previous transfer does not keep copying during the new
// startup delay.
type oamDMA struct {
	active  bool
	starting bool
	source  uint16
	offset  uint8
}

func (d *oamDMA) start(page uint8) {
	d.source = uint16(page) << 8
	d.offset = 0
	d.starting = true
	d.active = true
}

// Tick advances the transfer by one M-cycle. read is the MMU's raw byte
// read (bypassing OAM-DMA gating) and writeOAM installs a byte into OAM.
func (d *oamDMA) Tick(read func(uint16) uint8, writeOAM func(uint8, uint8)) {
	if !d.active {
		return
	}
	if d.starting {
		d.starting = false
		return
	}
	writeOAM(d.offset, read(d.source+uint16(d.offset)))
	d.offset++
	if d.offset == 0xA0 {
		d.active = false
	}
}

// Blocking reports whether the CPU's non-HRAM bus access should be
// gated this cycle.
func (d *oamDMA) Blocking() bool {
	return d.active && !d.starting
}

func (d *oamDMA) Save(s *state.State) {
	s.WriteBool(d.active)
	s.WriteBool(d.starting)
	s.Write16(d.source)
	s.Write8(d.offset)
}

func (d *oamDMA) Load(s *state.State) {
	d.active = s.ReadBool()
	d.starting = s.ReadBool()
	d.source = s.Read16()
	d.offset = s.Read8()
}
